package store

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers use it to
// distinguish "nothing to do" from a failed query.
var ErrNotFound = errors.New("record not found")

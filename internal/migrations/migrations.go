package migrations

import "embed"

// Files holds the SQL migrations compiled into the binary. Names follow the
// NNN_description.sql convention so lexical order is application order.
//
//go:embed *.sql
var Files embed.FS

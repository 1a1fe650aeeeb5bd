package store

import (
	"context"
	"time"

	"github.com/plannerhq/schedassist/internal/metrics"
)

// observeDB times one repository operation:
//
//	defer observeDB(ctx, "db.event.get")()
func observeDB(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() { metrics.ObserveDBLatency(ctx, operation, start) }
}

// Package genstore keeps base-dataset generations. A stored result is valid
// only while the generation it was written under is still current; changing
// the base dataset bumps the generation and every older result reads as stale.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live. Use Local for a single process
// or Redis to share generations between replicas.
type GenStore interface {
	// Snapshot returns the current generation of key; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes generations untouched for retention (no-op for Redis).
	Cleanup(retention time.Duration)
	Close(context.Context) error
}

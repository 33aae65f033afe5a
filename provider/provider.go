// Package provider defines the byte store behind the result store.
//
// Stores must be byte-for-byte transparent: Get returns exactly the bytes
// passed to Set for the key. The "result:" and "base:" keyspaces belong to
// package results; foreign values there fail frame validation and are deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl (0 = the store's default). cost is a hint for
	// cost-aware stores. ok=false means the store dropped the write.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}

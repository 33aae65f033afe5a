package proximity

import (
	"time"

	"github.com/unkn0wn-root/proximity/lru"
)

const (
	defaultCacheMax = lru.DefaultMaxEntries
	defaultCacheTTL = lru.DefaultTTL
	// queue of the owned idle pool; eviction passes are coalesced, so a
	// handful is plenty
	idleQueueLen = 64
	// bound on closing the result store after Close gave up waiting
	storeCloseGrace = 5 * time.Second
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

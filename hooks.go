package proximity

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the scheduler calls them
// from its drain loop. Wrap slow sinks with hooks/async.
type Hooks interface {
	// The engine failed a query. Only that request was rejected.
	SubmissionFailed(query string, err error)

	// Queued requests were rejected without running.
	// reason ∈ {"cancelled", "cleared", "closed"}
	RequestsDropped(reason string, n int)

	// A request ran and settled. outcome ∈ {"resolved", "failed"}.
	// wait is time spent queued, run is time spent in flight.
	Settled(kind Kind, outcome string, wait, run time.Duration)

	// A cache eviction pass removed entries.
	CacheEvicted(expired, lru int)

	// The result store failed. op ∈ {"generation", "get", "put", "invalidate", "close"}
	ResultStoreError(op string, err error)

	// The result store dropped an entry on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	ResultSelfHeal(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SubmissionFailed(string, error)                     {}
func (NopHooks) RequestsDropped(string, int)                        {}
func (NopHooks) Settled(Kind, string, time.Duration, time.Duration) {}
func (NopHooks) CacheEvicted(int, int)                              {}
func (NopHooks) ResultStoreError(string, error)                     {}
func (NopHooks) ResultSelfHeal(string, string)                      {}

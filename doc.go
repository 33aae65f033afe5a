// Package proximity schedules queries against a single stateful engine
// connection that can evaluate one query at a time, on behalf of many callers.
//
// Components:
//   - rankq: rank-ordered FIFO admission queue (High, Normal, Low).
//   - lru: size- and age-bounded cache of read Futures; identical reads
//     coalesce onto one engine call.
//   - Scheduler: single-flight drain loop over an engine.Conn.
//   - results (optional): second-tier result store over a Provider
//     (BigCache, Ristretto, Redis) with a base-dataset generation per GenStore.
//
// Request lifecycle:
//
//	Queued -> Cancelled | Cleared | InFlight
//	InFlight -> Resolved | Rejected
//
// Every request settles exactly once. Only queued requests can be cancelled;
// a request in flight always runs to completion. There are no retries: a
// failed query rejects its own request with a *SubmissionError and nothing
// else.
//
// Usage:
//
//	s, _ := proximity.New(proximity.Options{Conn: conn})
//	var req *proximity.Request
//	f, _ := s.Read("select * from t", proximity.WithPriority(proximity.High),
//	    proximity.OnRequest(func(r *proximity.Request) { req = r }))
//	// later, if the result is no longer wanted:
//	s.Cancel(req)
//	tbl, err := f.Wait(ctx)
package proximity

// Package asynchook delivers proximity hooks off the scheduler's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // log ~every 10th self-heal
//	})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	s, _ := proximity.New(proximity.Options{Conn: conn, Hooks: hooks})
//
// Events are dropped when the queue is full; see Dropped.
package asynchook

import (
	"time"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/idle"
)

type Hooks struct {
	inner proximity.Hooks
	pool  *idle.Pool
}

var _ proximity.Hooks = (*Hooks)(nil)

func New(inner proximity.Hooks, workers, qlen int) *Hooks {
	return &Hooks{inner: inner, pool: idle.NewPool(workers, qlen)}
}

// Close delivers queued events and stops the workers.
func (h *Hooks) Close() { h.pool.Close() }

// Dropped reports how many events were discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.pool.Dropped() }

func (h *Hooks) SubmissionFailed(q string, err error) {
	h.pool.Schedule(func() { h.inner.SubmissionFailed(q, err) })
}
func (h *Hooks) RequestsDropped(reason string, n int) {
	h.pool.Schedule(func() { h.inner.RequestsDropped(reason, n) })
}
func (h *Hooks) Settled(k proximity.Kind, outcome string, wait, run time.Duration) {
	h.pool.Schedule(func() { h.inner.Settled(k, outcome, wait, run) })
}
func (h *Hooks) CacheEvicted(expired, lru int) {
	h.pool.Schedule(func() { h.inner.CacheEvicted(expired, lru) })
}
func (h *Hooks) ResultStoreError(op string, err error) {
	h.pool.Schedule(func() { h.inner.ResultStoreError(op, err) })
}
func (h *Hooks) ResultSelfHeal(k, r string) {
	h.pool.Schedule(func() { h.inner.ResultSelfHeal(k, r) })
}

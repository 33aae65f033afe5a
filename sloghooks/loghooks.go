// Package sloghooks logs proximity hook events to a *slog.Logger.
// Query text and storage keys are redacted; noisy events can be sampled.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/proximity"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	SettledEvery  uint64
	// Optional redactor for queries and keys. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	settledCtr  atomic.Uint64
}

var _ proximity.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(s string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(s)
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SubmissionFailed(query string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("proximity.submission_failed",
		"query", h.redact(query),
		"err", err)
}

func (h *Hooks) RequestsDropped(reason string, n int) {
	if h.l == nil {
		return
	}
	h.l.Info("proximity.requests_dropped",
		"reason", reason,
		"n", n)
}

func (h *Hooks) Settled(kind proximity.Kind, outcome string, wait, run time.Duration) {
	if h.l == nil || !sample(h.opts.SettledEvery, &h.settledCtr) {
		return
	}
	h.l.Debug("proximity.settled",
		"kind", kind.String(),
		"outcome", outcome,
		"wait", wait,
		"run", run)
}

func (h *Hooks) CacheEvicted(expired, lru int) {
	if h.l == nil {
		return
	}
	h.l.Debug("proximity.cache_evicted",
		"expired", expired,
		"lru", lru)
}

func (h *Hooks) ResultStoreError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("proximity.result_store_error",
		"op", op,
		"err", err)
}

func (h *Hooks) ResultSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("proximity.result_self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

// Package promhooks exports proximity hook events as Prometheus metrics.
package promhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/proximity"
)

const namespace = "proximity"

type Hooks struct {
	submissionFailures prometheus.Counter
	dropped            *prometheus.CounterVec
	settled            *prometheus.CounterVec
	wait               *prometheus.HistogramVec
	run                *prometheus.HistogramVec
	evicted            *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	selfHeals          *prometheus.CounterVec
}

var _ proximity.Hooks = (*Hooks)(nil)

// New creates the collectors and registers them with reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := &Hooks{
		submissionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_failures_total",
			Help:      "Engine calls that returned an error.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_dropped_total",
			Help:      "Queued requests rejected without running.",
		}, []string{"reason"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_settled_total",
			Help:      "Requests that ran and settled.",
		}, []string{"kind", "outcome"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time requests spent queued before running.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		run: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_seconds",
			Help:      "Time requests spent in flight.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evicted_total",
			Help:      "Cached reads removed by eviction passes.",
		}, []string{"cause"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_store_errors_total",
			Help:      "Result store failures.",
		}, []string{"op"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_self_heals_total",
			Help:      "Stored results dropped on read.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{
		h.submissionFailures, h.dropped, h.settled, h.wait, h.run,
		h.evicted, h.storeErrors, h.selfHeals,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) SubmissionFailed(string, error) { h.submissionFailures.Inc() }

func (h *Hooks) RequestsDropped(reason string, n int) {
	h.dropped.WithLabelValues(reason).Add(float64(n))
}

func (h *Hooks) Settled(kind proximity.Kind, outcome string, wait, run time.Duration) {
	k := kind.String()
	h.settled.WithLabelValues(k, outcome).Inc()
	h.wait.WithLabelValues(k).Observe(wait.Seconds())
	h.run.WithLabelValues(k).Observe(run.Seconds())
}

func (h *Hooks) CacheEvicted(expired, lru int) {
	h.evicted.WithLabelValues("ttl").Add(float64(expired))
	h.evicted.WithLabelValues("lru").Add(float64(lru))
}

func (h *Hooks) ResultStoreError(op string, _ error) {
	h.storeErrors.WithLabelValues(op).Inc()
}

func (h *Hooks) ResultSelfHeal(_, reason string) {
	h.selfHeals.WithLabelValues(reason).Inc()
}

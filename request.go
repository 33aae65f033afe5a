package proximity

import (
	"fmt"
	"time"

	"github.com/unkn0wn-root/proximity/engine"
)

// Priority is a queue rank; lower is served first.
type Priority int

const (
	High Priority = iota
	Normal
	Low

	// Ranks is the number of priority levels.
	Ranks = int(Low) + 1
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts "high", "normal" or "low".
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high":
		return High, nil
	case "normal", "":
		return Normal, nil
	case "low":
		return Low, nil
	}
	return 0, fmt.Errorf("proximity: unknown priority %q", s)
}

// Kind tells reads from execs.
type Kind uint8

const (
	KindRead Kind = iota + 1
	KindExec
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindExec:
		return "exec"
	default:
		return "unknown"
	}
}

// Request is the handle of one queued read or exec. Handles are compared by
// identity: two requests with the same query are different requests.
type Request struct {
	kind     Kind
	query    string
	priority Priority
	queuedAt time.Time
	cached   bool // read is registered in the cache under query

	read *Future[*engine.Table]
	exec *Future[struct{}]
}

func (r *Request) Kind() Kind          { return r.kind }
func (r *Request) Query() string       { return r.query }
func (r *Request) Priority() Priority  { return r.priority }
func (r *Request) QueuedAt() time.Time { return r.queuedAt }

func (r *Request) resolve(t *engine.Table) {
	if r.kind == KindRead {
		r.read.resolve(t)
		return
	}
	r.exec.resolve(struct{}{})
}

func (r *Request) reject(err error) {
	if r.kind == KindRead {
		r.read.reject(err)
		return
	}
	r.exec.reject(err)
}

// RequestOption configures a single Read, Preread or Exec call.
type RequestOption func(*requestConfig)

type requestConfig struct {
	priority  Priority
	noCache   bool
	onRequest func(*Request)
}

func newRequestConfig(opts []RequestOption) requestConfig {
	cfg := requestConfig{priority: Normal}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithPriority sets the queue rank. Default Normal.
func WithPriority(p Priority) RequestOption {
	return func(c *requestConfig) { c.priority = p }
}

// WithoutCache makes a read bypass the cache: no lookup, no store.
func WithoutCache() RequestOption {
	return func(c *requestConfig) { c.noCache = true }
}

// OnRequest is called with the request handle right after it is queued and
// before it can be submitted, so the caller can cancel it. The drain loop
// does not start new work while the callback runs; keep it short. It is not
// called when a read is served from the cache, since no request is built.
func OnRequest(fn func(*Request)) RequestOption {
	return func(c *requestConfig) { c.onRequest = fn }
}

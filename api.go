package proximity

import (
	"context"
	"time"

	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/idle"
)

// Scheduler serializes reads and writes against one engine connection.
//
// Requests are admitted into a rank-ordered queue and run strictly one at a
// time, highest priority first, oldest first within a priority. A running
// request is never preempted or cancelled. Cacheable reads are coalesced: a
// read for a query that is cached, settled or still pending, returns the same
// Future without queueing anything.
type Scheduler interface {
	// Ready is closed when the engine connection has finished initializing.
	Ready() <-chan struct{}
	Initialized() bool

	// Read queues a read at WithPriority (default Normal). Unless WithoutCache
	// is given, a cached Future for query is returned as is.
	Read(query string, opts ...RequestOption) (*Future[*engine.Table], error)

	// Preread is a cacheable Low priority read, a prefetch hint that never
	// jumps ahead of explicitly prioritized work. WithPriority and
	// WithoutCache are ignored.
	Preread(query string, opts ...RequestOption) (*Future[*engine.Table], error)

	// Exec queues a statement. Execs are never cached or coalesced.
	Exec(query string, opts ...RequestOption) (*Future[struct{}], error)

	// Cancel rejects and removes the given requests if they are still
	// queued. In-flight, settled and unknown handles are ignored.
	Cancel(reqs ...*Request)

	// ClearRequests rejects every queued request with ErrCleared. The
	// in-flight request, if any, runs to completion.
	ClearRequests()

	// ClearCache drops every cached read.
	ClearCache()

	// SetBase announces the base dataset the queries run over. When it
	// changes, cached reads are dropped, queued requests are rejected with
	// ErrCleared and the result store generation is bumped.
	SetBase(query string)

	Stats() Stats

	// Close rejects queued requests with ErrClosed, refuses new ones and
	// waits for the in-flight request until ctx is done.
	Close(ctx context.Context) error
}

// ResultStore is an optional second tier for settled read results, usually
// shared between processes. See package results.
type ResultStore interface {
	Get(ctx context.Context, query string) (*engine.Table, bool, error)
	// Generation returns the current base generation. The scheduler takes it
	// before running a read and passes it to Put.
	Generation(ctx context.Context) (uint64, error)
	// Put stores t computed under gen. It must drop the write when gen is no
	// longer current.
	Put(ctx context.Context, query string, t *engine.Table, gen uint64) error
	// Invalidate makes every stored result stale by bumping the generation.
	Invalidate(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configure a Scheduler. Only Conn is required.
type Options struct {
	// Required
	Conn engine.Conn

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	CacheMaxEntries int           // 0 => 1000
	CacheTTL        time.Duration // 0 => 3h, measured from last access

	// Idle runs cache eviction passes. nil => a single-worker pool owned and
	// closed by the scheduler.
	Idle idle.Scheduler

	// Results is consulted for cacheable reads before the engine and written
	// through on success. nil disables the second tier.
	Results ResultStore

	// SubmitTimeout bounds a single engine call. 0 => no bound: an engine that
	// never answers stalls the whole queue behind it.
	SubmitTimeout time.Duration

	// Now is the clock used for stats and cache stamps. nil => time.Now.
	Now func() time.Time
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Queued           int
	QueuedByPriority [Ranks]int
	InFlight         bool
	CacheEntries     int

	Submitted   uint64
	Resolved    uint64
	Failed      uint64
	Cancelled   uint64
	Cleared     uint64
	CacheHits   uint64
	CacheMisses uint64
	StoreHits   uint64
}

func New(opts Options) (Scheduler, error) {
	return newScheduler(opts)
}

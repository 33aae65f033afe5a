package proximity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/idle"
	"github.com/unkn0wn-root/proximity/lru"
	"github.com/unkn0wn-root/proximity/rankq"
)

type scheduler struct {
	conn    engine.Conn
	log     Logger
	hooks   Hooks
	results ResultStore
	timeout time.Duration
	now     func() time.Time

	ownedIdle *idle.Pool

	// ctx parents every engine call; cancelled only when Close gives up.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards everything below, the queue and cache included. The engine
	// call is the only work done outside it.
	mu       sync.Mutex
	queue    *rankq.Queue[*Request]
	cache    *lru.Cache[string, *Future[*engine.Table]]
	inFlight *Request
	holds    int // OnRequest callbacks running; the drain waits for them
	base     string
	hasBase  bool
	closed   bool
	stats    Stats
}

func newScheduler(opts Options) (*scheduler, error) {
	if opts.Conn == nil {
		return nil, fmt.Errorf("proximity: conn is required")
	}

	s := &scheduler{
		conn:    opts.Conn,
		results: opts.Results,
		timeout: opts.SubmitTimeout,
		queue:   rankq.New[*Request](Ranks),
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.now = opts.Now
	if s.now == nil {
		s.now = time.Now
	}

	sched := opts.Idle
	if sched == nil {
		s.ownedIdle = idle.NewPool(1, idleQueueLen)
		sched = s.ownedIdle
	}
	s.cache = lru.New[string, *Future[*engine.Table]](lru.Options{
		MaxEntries: coalesce(opts.CacheMaxEntries, defaultCacheMax),
		TTL:        coalesce(opts.CacheTTL, defaultCacheTTL),
		Idle:       sched,
		Now:        s.now,
		OnEvict: func(expired, lru int) {
			s.log.Debug("cache eviction pass", Fields{"expired": expired, "lru": lru})
			s.hooks.CacheEvicted(expired, lru)
		},
	})

	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func (s *scheduler) Ready() <-chan struct{} { return s.conn.Ready() }

func (s *scheduler) Initialized() bool {
	select {
	case <-s.conn.Ready():
		return true
	default:
		return false
	}
}

func (s *scheduler) Read(query string, opts ...RequestOption) (*Future[*engine.Table], error) {
	return s.read(query, newRequestConfig(opts))
}

func (s *scheduler) Preread(query string, opts ...RequestOption) (*Future[*engine.Table], error) {
	cfg := newRequestConfig(opts)
	cfg.priority = Low
	cfg.noCache = false
	return s.read(query, cfg)
}

func (s *scheduler) read(query string, cfg requestConfig) (*Future[*engine.Table], error) {
	useCache := !cfg.noCache

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if useCache {
		if f, ok := s.cache.Get(query); ok {
			s.stats.CacheHits++
			s.mu.Unlock()
			s.log.Debug("read served from cache", Fields{"query": query})
			return f, nil
		}
		s.stats.CacheMisses++
	}

	f := newFuture[*engine.Table]()
	r := &Request{kind: KindRead, query: query, priority: cfg.priority, cached: useCache, read: f}
	if err := s.enqueue(r); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if useCache {
		s.cache.Set(query, f)
	}
	s.dispatch(r, cfg.onRequest)
	return f, nil
}

func (s *scheduler) Exec(query string, opts ...RequestOption) (*Future[struct{}], error) {
	cfg := newRequestConfig(opts)
	f := newFuture[struct{}]()
	r := &Request{kind: KindExec, query: query, priority: cfg.priority, exec: f}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if err := s.enqueue(r); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.dispatch(r, cfg.onRequest)
	return f, nil
}

// dispatch hands r to onRequest before the drain loop can pick it up, so the
// caller holds the handle while r is still cancellable. It must be called
// with s.mu held and releases it.
func (s *scheduler) dispatch(r *Request, onRequest func(*Request)) {
	if onRequest != nil {
		s.holds++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.holds--
			s.next()
			s.mu.Unlock()
		}()
		onRequest(r)
		return
	}
	s.next()
	s.mu.Unlock()
}

// enqueue must be called with s.mu held.
func (s *scheduler) enqueue(r *Request) error {
	r.queuedAt = s.now()
	if err := s.queue.Enqueue(r, int(r.priority)); err != nil {
		return err
	}
	s.log.Debug("request queued", Fields{"kind": r.kind.String(), "priority": r.priority.String(), "queued": s.queue.Len()})
	return nil
}

// next starts the oldest highest-priority request if nothing is in flight.
// It must be called with s.mu held.
func (s *scheduler) next() {
	if s.inFlight != nil || s.holds > 0 {
		return
	}
	r, ok := s.queue.Dequeue()
	if !ok {
		return
	}
	s.inFlight = r
	s.stats.Submitted++
	s.wg.Add(1)
	go s.submit(r)
}

func (s *scheduler) submit(r *Request) {
	defer s.wg.Done()

	start := s.now()
	t, err := s.evaluate(r)
	run := s.now().Sub(start)
	wait := start.Sub(r.queuedAt)

	s.mu.Lock()
	if err != nil {
		s.stats.Failed++
		s.forget(r)
	} else {
		s.stats.Resolved++
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("query failed", Fields{"kind": r.kind.String(), "query": r.query, "err": err})
		s.hooks.SubmissionFailed(r.query, err)
		r.reject(&SubmissionError{Query: r.query, Err: err})
		s.hooks.Settled(r.kind, "failed", wait, run)
	} else {
		r.resolve(t)
		s.hooks.Settled(r.kind, "resolved", wait, run)
	}

	s.mu.Lock()
	s.inFlight = nil
	s.next()
	s.mu.Unlock()
}

func (s *scheduler) evaluate(r *Request) (*engine.Table, error) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	storeRead := r.kind == KindRead && s.results != nil
	var gen uint64
	if storeRead {
		// observed before the engine runs; a base change after this point
		// makes the write-through a no-op
		var err error
		if gen, err = s.results.Generation(ctx); err != nil {
			s.log.Warn("result store generation failed", Fields{"query": r.query, "err": err})
			s.hooks.ResultStoreError("generation", err)
			storeRead = false
		}
	}
	if storeRead && r.cached {
		t, ok, err := s.results.Get(ctx, r.query)
		switch {
		case err != nil:
			s.log.Warn("result store get failed", Fields{"query": r.query, "err": err})
			s.hooks.ResultStoreError("get", err)
		case ok:
			s.mu.Lock()
			s.stats.StoreHits++
			s.mu.Unlock()
			return t, nil
		}
	}

	t, err := s.conn.Evaluate(ctx, r.query)
	if err != nil {
		return nil, err
	}
	if storeRead {
		if err := s.results.Put(ctx, r.query, t, gen); err != nil {
			s.log.Warn("result store put failed", Fields{"query": r.query, "err": err})
			s.hooks.ResultStoreError("put", err)
		}
	}
	return t, nil
}

// forget drops the cache entry of a read that is about to be rejected, so a
// later read of the same query gets a fresh attempt instead of the error.
// It must be called with s.mu held.
func (s *scheduler) forget(r *Request) {
	if r.kind != KindRead || !r.cached {
		return
	}
	s.cache.DeleteIf(r.query, func(f *Future[*engine.Table]) bool { return f == r.read })
}

func (s *scheduler) Cancel(reqs ...*Request) {
	if len(reqs) == 0 {
		return
	}
	set := make(map[*Request]struct{}, len(reqs))
	for _, r := range reqs {
		if r != nil {
			set[r] = struct{}{}
		}
	}
	if len(set) == 0 {
		return
	}

	s.mu.Lock()
	n := s.queue.Remove(func(r *Request) bool {
		if _, ok := set[r]; !ok {
			return false
		}
		s.forget(r)
		r.reject(ErrCancelled)
		return true
	})
	s.stats.Cancelled += uint64(n)
	s.mu.Unlock()

	if n > 0 {
		s.log.Debug("requests cancelled", Fields{"n": n})
		s.hooks.RequestsDropped("cancelled", n)
	}
}

func (s *scheduler) ClearRequests() {
	s.mu.Lock()
	n := s.dropQueued(ErrCleared)
	s.stats.Cleared += uint64(n)
	s.mu.Unlock()

	if n > 0 {
		s.log.Debug("requests cleared", Fields{"n": n})
		s.hooks.RequestsDropped("cleared", n)
	}
}

// dropQueued rejects every queued request with reason. It must be called
// with s.mu held.
func (s *scheduler) dropQueued(reason error) int {
	return s.queue.Remove(func(r *Request) bool {
		s.forget(r)
		r.reject(reason)
		return true
	})
}

func (s *scheduler) ClearCache() {
	s.mu.Lock()
	s.cache.Clear()
	s.mu.Unlock()
}

func (s *scheduler) SetBase(query string) {
	s.mu.Lock()
	if s.closed || (s.hasBase && s.base == query) {
		s.mu.Unlock()
		return
	}
	s.base, s.hasBase = query, true
	s.mu.Unlock()

	// Bump the generation before the cache is cleared: any read queued after
	// the clear observes the new generation and cannot hit an old-base frame.
	if s.results != nil {
		if err := s.results.Invalidate(s.ctx); err != nil {
			s.log.Error("result store invalidate failed", Fields{"err": err})
			s.hooks.ResultStoreError("invalidate", err)
		}
	}

	s.mu.Lock()
	s.cache.Clear()
	n := s.dropQueued(ErrCleared)
	s.stats.Cleared += uint64(n)
	s.mu.Unlock()

	s.log.Info("base dataset changed", Fields{"base": query, "cleared": n})
	if n > 0 {
		s.hooks.RequestsDropped("cleared", n)
	}
}

func (s *scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Queued = s.queue.Len()
	for r := 0; r < Ranks; r++ {
		st.QueuedByPriority[r] = s.queue.RankLen(r)
	}
	st.InFlight = s.inFlight != nil
	st.CacheEntries = s.cache.Len()
	return st
}

func (s *scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	n := s.dropQueued(ErrClosed)
	s.mu.Unlock()

	if n > 0 {
		s.hooks.RequestsDropped("closed", n)
	}
	s.log.Info("scheduler closing", Fields{"dropped": n})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		// give up on the in-flight engine call
		err = fmt.Errorf("proximity: close: %w", ctx.Err())
	}
	s.cancel()

	if s.ownedIdle != nil {
		s.ownedIdle.Close()
	}
	if s.results != nil {
		cctx := ctx
		if err != nil {
			// ctx is spent; the store still gets a bounded chance to release
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(context.Background(), storeCloseGrace)
			defer cancel()
		}
		if cerr := s.results.Close(cctx); cerr != nil {
			s.hooks.ResultStoreError("close", cerr)
			err = errors.Join(err, cerr)
		}
	}
	return err
}

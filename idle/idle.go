// Package idle provides low-priority deferred task execution.
//
// A Scheduler accepts tasks that may run at any later point on another
// goroutine. It is used for housekeeping (cache eviction passes, hook
// delivery) that must never block or reorder the caller's hot path.
package idle

import (
	"sync"
	"sync/atomic"
)

// Scheduler runs task at some later, low-priority point.
// Implementations must not block the caller. Schedule reports whether task
// was accepted; a refused task will never run.
type Scheduler interface {
	Schedule(task func()) bool
}

// Func adapts a plain function to Scheduler.
type Func func(task func())

func (f Func) Schedule(task func()) bool {
	f(task)
	return true
}

// Go runs every task on its own goroutine.
var Go Scheduler = Func(func(task func()) { go task() })

// Pool is a fixed set of workers draining a bounded task queue. When the
// queue is full, new tasks are dropped and counted.
type Pool struct {
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ Scheduler = (*Pool)(nil)

// NewPool starts workers goroutines over a queue of qlen tasks.
// workers <= 0 => 1, qlen <= 0 => 1024.
func NewPool(workers, qlen int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	p := &Pool{q: make(chan func(), qlen)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for f := range p.q {
				f()
			}
		}()
	}
	return p
}

// Schedule enqueues task, or drops it if the pool is full or closed.
func (p *Pool) Schedule(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.q <- task:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped reports how many tasks were refused because the queue was full.
func (p *Pool) Dropped() uint64 { return p.dropped.Load() }

// Close stops accepting tasks, runs what is already queued and waits for the
// workers to exit. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.q)
	p.mu.Unlock()
	p.wg.Wait()
}

// Manual collects tasks and runs them only when RunPending is called. Useful
// for hosts that own an idle loop and for deterministic tests.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

var _ Scheduler = (*Manual)(nil)

func (m *Manual) Schedule(task func()) bool {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
	return true
}

// Pending reports how many tasks are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// RunPending runs every task scheduled so far, in order, and reports how many
// ran. Tasks scheduled while running wait for the next call.
func (m *Manual) RunPending() int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, t := range tasks {
		t()
	}
	return len(tasks)
}

package genstore

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	gen     uint64
	touched time.Time
}

// Local keeps generations in process memory. With a cleanup interval it
// prunes generations that have not been bumped for the retention period.
type Local struct {
	mu   sync.RWMutex
	gens map[string]localEntry
	now  func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

var _ GenStore = (*Local)(nil)

// NewLocal returns an in-process store. cleanupEvery or retention <= 0
// disables the background loop.
func NewLocal(cleanupEvery, retention time.Duration) *Local {
	s := &Local{gens: make(map[string]localEntry), now: time.Now}
	if cleanupEvery > 0 && retention > 0 {
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.loop(cleanupEvery, retention)
	}
	return s
}

func (s *Local) loop(every, retention time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *Local) Snapshot(_ context.Context, key string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[key]
	s.mu.RUnlock()
	return e.gen, nil
}

func (s *Local) Bump(_ context.Context, key string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	e := s.gens[key]
	e.gen++
	e.touched = now
	s.gens[key] = e
	s.mu.Unlock()
	return e.gen, nil
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention)
	s.mu.Lock()
	for k, e := range s.gens {
		if e.touched.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close(context.Context) error {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.wg.Wait()
		}
	})
	return nil
}

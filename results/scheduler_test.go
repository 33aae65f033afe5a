package results

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/idle"
)

type countingConn struct{ n atomic.Int32 }

func (c *countingConn) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *countingConn) Evaluate(_ context.Context, q string) (*engine.Table, error) {
	c.n.Add(1)
	return table(q), nil
}

func readOnce(t *testing.T, s proximity.Scheduler, q string) *engine.Table {
	t.Helper()
	f, err := s.Read(q)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tbl, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return tbl
}

// A result survives ClearCache through the store, and SetBase makes it stale.
func TestSchedulerUsesStore(t *testing.T) {
	ctx := context.Background()
	conn := &countingConn{}
	store, _ := newTestStore(t, newMemProvider(), nil)
	s, err := proximity.New(proximity.Options{Conn: conn, Results: store, Idle: &idle.Manual{}})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	readOnce(t, s, "q")
	s.ClearCache()
	if got := readOnce(t, s, "q"); got.Rows[0][0] != "q" {
		t.Fatalf("got=%v", got.Rows)
	}
	if n := conn.n.Load(); n != 1 {
		t.Fatalf("engine calls=%d want 1", n)
	}
	if st := s.Stats(); st.StoreHits != 1 {
		t.Fatalf("store hits=%d want 1", st.StoreHits)
	}

	s.SetBase("select * from other")
	readOnce(t, s, "q")
	if n := conn.n.Load(); n != 2 {
		t.Fatalf("engine calls=%d want 2 after base change", n)
	}
	if g, _ := store.Generation(ctx); g != 1 {
		t.Fatalf("gen=%d want 1", g)
	}
}

// baseConn answers every query with the base dataset in effect when the
// engine call started, and holds each call until released.
type baseConn struct {
	mu      sync.Mutex
	base    string
	started chan struct{}
	release chan struct{}
	n       atomic.Int32
}

func newBaseConn(base string) *baseConn {
	return &baseConn{base: base, started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (c *baseConn) Ready() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *baseConn) setBase(b string) {
	c.mu.Lock()
	c.base = b
	c.mu.Unlock()
}

func (c *baseConn) Evaluate(ctx context.Context, _ string) (*engine.Table, error) {
	c.n.Add(1)
	c.mu.Lock()
	b := c.base
	c.mu.Unlock()
	c.started <- struct{}{}
	select {
	case <-c.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return table(b), nil
}

func (c *baseConn) answerNext(t *testing.T) {
	t.Helper()
	select {
	case <-c.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("engine call never started")
	}
	c.release <- struct{}{}
}

func TestBaseChangeDuringInFlightRead(t *testing.T) {
	ctx := context.Background()
	conn := newBaseConn("old")
	store, _ := newTestStore(t, newMemProvider(), nil)
	s, err := proximity.New(proximity.Options{Conn: conn, Results: store, Idle: &idle.Manual{}})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	s.SetBase("old")
	f, err := s.Read("q")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	select {
	case <-conn.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("engine call never started")
	}

	// base changes while the old-base read is in flight
	conn.setBase("new")
	s.SetBase("new")
	conn.release <- struct{}{}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if got, err := f.Wait(wctx); err != nil || got.Rows[0][0] != "old" {
		t.Fatalf("in-flight read got=%v err=%v want old", got, err)
	}

	f2, err := s.Read("q")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	conn.answerNext(t)
	got, err := f2.Wait(wctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got.Rows[0][0] != "new" {
		t.Fatalf("read after base change got=%v want new", got.Rows[0][0])
	}
	if n := conn.n.Load(); n != 2 {
		t.Fatalf("engine calls=%d want 2", n)
	}
}

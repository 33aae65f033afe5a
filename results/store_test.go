package results

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/codec"
	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/genstore"
	"github.com/unkn0wn-root/proximity/internal/wire"
	"github.com/unkn0wn-root/proximity/provider"
)

type memProvider struct {
	m      map[string][]byte
	ttls   map[string]time.Duration
	closed bool
}

var _ provider.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider {
	return &memProvider{m: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.m[key] = value
	p.ttls[key] = ttl
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error { delete(p.m, key); return nil }
func (p *memProvider) Close(context.Context) error             { p.closed = true; return nil }

type healHooks struct {
	proximity.NopHooks
	mu      sync.Mutex
	reasons []string
}

func (h *healHooks) ResultSelfHeal(_, reason string) {
	h.mu.Lock()
	h.reasons = append(h.reasons, reason)
	h.mu.Unlock()
}

func (h *healHooks) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.reasons) == 0 {
		return ""
	}
	return h.reasons[len(h.reasons)-1]
}

func newTestStore(t *testing.T, mp *memProvider, mod func(*Options)) (*Store, *healHooks) {
	t.Helper()
	hooks := &healHooks{}
	opts := Options{
		Namespace: "test",
		Provider:  mp,
		GenStore:  genstore.NewLocal(0, 0),
		Hooks:     hooks,
	}
	if mod != nil {
		mod(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, hooks
}

func table(v string) *engine.Table {
	return &engine.Table{Columns: []engine.Column{{Name: "v", Type: "TEXT"}}, Rows: [][]any{{v}}}
}

// ==============================
// Read/write path
// ==============================

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, _ := newTestStore(t, mp, nil)

	if _, ok, err := s.Get(ctx, "q"); ok || err != nil {
		t.Fatalf("empty store got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "q", table("x"), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, "q")
	if err != nil || !ok {
		t.Fatalf("Get ok=%v err=%v", ok, err)
	}
	if got.Rows[0][0] != "x" {
		t.Fatalf("got=%v want x", got.Rows[0][0])
	}
	if ttl := mp.ttls[s.key("q")]; ttl != defaultTTL {
		t.Fatalf("ttl=%v want %v", ttl, defaultTTL)
	}
}

func TestInvalidateMakesResultsStale(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, hooks := newTestStore(t, mp, nil)

	s.Put(ctx, "q", table("x"), 0)
	if err := s.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if g, _ := s.Generation(ctx); g != 1 {
		t.Fatalf("gen=%d want 1", g)
	}
	if _, ok, _ := s.Get(ctx, "q"); ok {
		t.Fatalf("stale result served")
	}
	if hooks.last() != HealGenMismatch {
		t.Fatalf("reason=%q want %q", hooks.last(), HealGenMismatch)
	}
	if _, ok := mp.m[s.key("q")]; ok {
		t.Fatalf("stale frame not deleted")
	}

	// a result computed before the bump is not stored
	if err := s.Put(ctx, "q", table("old"), 0); err != nil {
		t.Fatalf("stale Put: %v", err)
	}
	if _, ok := mp.m[s.key("q")]; ok {
		t.Fatalf("result computed under an old generation was written")
	}

	// writes under the new generation are valid again
	s.Put(ctx, "q", table("y"), 1)
	if got, ok, _ := s.Get(ctx, "q"); !ok || got.Rows[0][0] != "y" {
		t.Fatalf("fresh result not served")
	}
}

func TestSharedGenerationAcrossStores(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	gens := genstore.NewLocal(0, 0)
	a, _ := newTestStore(t, mp, func(o *Options) { o.GenStore = gens })
	b, _ := newTestStore(t, mp, func(o *Options) { o.GenStore = gens })

	a.Put(ctx, "q", table("x"), 0)
	if _, ok, _ := b.Get(ctx, "q"); !ok {
		t.Fatalf("replica b should see a's result")
	}
	b.Invalidate(ctx)
	if _, ok, _ := a.Get(ctx, "q"); ok {
		t.Fatalf("replica a served a result invalidated by b")
	}
}

// ==============================
// Self-heal
// ==============================

func TestSelfHeal(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		frame func(s *Store) []byte
		want  string
	}{
		{"corrupt", func(*Store) []byte { return []byte("garbage") }, HealCorrupt},
		{"collision", func(*Store) []byte {
			p, _ := codec.JSON[*engine.Table]{}.Encode(table("x"))
			return wire.Encode(0, "other query", p)
		}, HealCollision},
		{"decode", func(*Store) []byte { return wire.Encode(0, "q", []byte("{not json")) }, HealDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mp := newMemProvider()
			s, hooks := newTestStore(t, mp, nil)
			mp.m[s.key("q")] = tc.frame(s)

			if _, ok, err := s.Get(ctx, "q"); ok || err != nil {
				t.Fatalf("got ok=%v err=%v want miss", ok, err)
			}
			if _, ok := mp.m[s.key("q")]; ok {
				t.Fatalf("bad frame not deleted")
			}
			if hooks.last() != tc.want {
				t.Fatalf("reason=%q want %q", hooks.last(), tc.want)
			}
		})
	}
}

func TestDecodeLimitHeals(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, hooks := newTestStore(t, mp, func(o *Options) {
		o.Codec = codec.Limit[*engine.Table]{Inner: codec.Msgpack[*engine.Table]{}, MaxDecode: 4}
	})
	p, _ := codec.Msgpack[*engine.Table]{}.Encode(table("large enough"))
	mp.m[s.key("q")] = wire.Encode(0, "q", p)

	if _, ok, _ := s.Get(ctx, "q"); ok {
		t.Fatalf("oversized payload served")
	}
	if hooks.last() != HealDecode {
		t.Fatalf("reason=%q want %q", hooks.last(), HealDecode)
	}
}

// ==============================
// Construction and lifecycle
// ==============================

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Namespace: "x"}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New(Options{Provider: newMemProvider()}); err == nil {
		t.Fatalf("expected error without namespace")
	}
}

type failingGenStore struct{ err error }

func (g failingGenStore) Snapshot(context.Context, string) (uint64, error) { return 0, g.err }
func (g failingGenStore) Bump(context.Context, string) (uint64, error)     { return 0, g.err }
func (g failingGenStore) Cleanup(time.Duration)                            {}
func (g failingGenStore) Close(context.Context) error                      { return nil }

func TestGenStoreErrorsSurface(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	mp := newMemProvider()
	s, _ := newTestStore(t, mp, func(o *Options) { o.GenStore = failingGenStore{err: boom} })

	if err := s.Put(ctx, "q", table("x"), 0); !errors.Is(err, boom) {
		t.Fatalf("Put err=%v want boom", err)
	}
	if err := s.Invalidate(ctx); !errors.Is(err, boom) {
		t.Fatalf("Invalidate err=%v want boom", err)
	}
	mp.m[s.key("q")] = wire.Encode(0, "q", []byte("{}"))
	if _, _, err := s.Get(ctx, "q"); !errors.Is(err, boom) {
		t.Fatalf("Get err=%v want boom", err)
	}
}

func TestCloseClosesProvider(t *testing.T) {
	mp := newMemProvider()
	s, err := New(Options{Namespace: "x", Provider: mp})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mp.closed {
		t.Fatalf("provider not closed")
	}
}

// Package results is a second-tier store for settled read results.
//
// Tables are encoded with a Codec, framed with the base generation they were
// computed under and written to a Provider. A read whose frame is corrupt,
// was written under an older generation or belongs to a different query is
// deleted and reported as a miss. Invalidate bumps the generation, so a base
// dataset change invalidates every stored result at once, across replicas
// when the GenStore is shared.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/codec"
	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/genstore"
	"github.com/unkn0wn-root/proximity/internal/util"
	"github.com/unkn0wn-root/proximity/internal/wire"
	"github.com/unkn0wn-root/proximity/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultSweep        = time.Hour
	defaultGenRetention = 30 * 24 * time.Hour
)

// Self-heal reasons passed to Hooks.ResultSelfHeal.
const (
	HealCorrupt     = "corrupt"
	HealGenMismatch = "gen_mismatch"
	HealCollision   = "query_mismatch"
	HealDecode      = "value_decode"
)

type Options struct {
	// Required
	Namespace string // e.g. "analytics:prod"; scopes keys and the generation
	Provider  provider.Provider

	Codec codec.Codec[*engine.Table] // nil => codec.JSON

	// GenStore holds the base generation. nil => an in-process genstore.Local
	// owned and closed by the Store. Share a genstore.Redis between replicas.
	GenStore        genstore.GenStore
	CleanupInterval time.Duration // local generations sweep; 0 => 1h
	GenRetention    time.Duration // 0 => 30d

	TTL time.Duration // per entry; 0 => 10m

	// ComputeCost returns the cost hint for a frame. nil => len(frame).
	ComputeCost func(key string, frame []byte) int64

	Logger proximity.Logger
	Hooks  proximity.Hooks
}

type Store struct {
	ns       string
	genKey   string
	provider provider.Provider
	codec    codec.Codec[*engine.Table]
	gen      genstore.GenStore
	ownedGen bool
	ttl      time.Duration
	cost     func(string, []byte) int64
	log      proximity.Logger
	hooks    proximity.Hooks
}

var _ proximity.ResultStore = (*Store)(nil)

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("results: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("results: namespace is required")
	}

	s := &Store{
		ns:       opts.Namespace,
		genKey:   "base:" + opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		gen:      opts.GenStore,
		ttl:      opts.TTL,
		cost:     opts.ComputeCost,
		log:      opts.Logger,
		hooks:    opts.Hooks,
	}
	if s.codec == nil {
		s.codec = codec.JSON[*engine.Table]{}
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.cost == nil {
		s.cost = func(_ string, frame []byte) int64 { return int64(len(frame)) }
	}
	if s.log == nil {
		s.log = proximity.NopLogger{}
	}
	if s.hooks == nil {
		s.hooks = proximity.NopHooks{}
	}
	if s.gen == nil {
		sweep, retention := opts.CleanupInterval, opts.GenRetention
		if sweep <= 0 {
			sweep = defaultSweep
		}
		if retention <= 0 {
			retention = defaultGenRetention
		}
		s.gen = genstore.NewLocal(sweep, retention)
		s.ownedGen = true
	}
	return s, nil
}

func (s *Store) key(query string) string {
	return util.ResultKey("result:"+s.ns, query)
}

func (s *Store) Get(ctx context.Context, query string) (*engine.Table, bool, error) {
	k := s.key(query)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return nil, false, err
	}

	e, err := wire.Decode(raw)
	if err != nil {
		s.heal(ctx, k, HealCorrupt)
		return nil, false, nil
	}
	cur, err := s.gen.Snapshot(ctx, s.genKey)
	if err != nil {
		return nil, false, fmt.Errorf("results: snapshot generation: %w", err)
	}
	if e.Gen != cur {
		s.heal(ctx, k, HealGenMismatch)
		return nil, false, nil
	}
	if e.Query != query {
		s.heal(ctx, k, HealCollision)
		return nil, false, nil
	}
	t, err := s.codec.Decode(e.Payload)
	if err != nil {
		s.heal(ctx, k, HealDecode)
		return nil, false, nil
	}
	return t, true, nil
}

func (s *Store) heal(ctx context.Context, key, reason string) {
	if err := s.provider.Del(ctx, key); err != nil {
		s.log.Warn("result self-heal delete failed", proximity.Fields{"key": key, "err": err})
	}
	s.log.Debug("result self-healed", proximity.Fields{"key": key, "reason": reason})
	s.hooks.ResultSelfHeal(key, reason)
}

// Put stores t computed under gen, the generation observed before the engine
// ran. The write is skipped when the generation has moved since. A frame that
// races past the check with a concurrent Invalidate still carries gen and
// heals on read.
func (s *Store) Put(ctx context.Context, query string, t *engine.Table, gen uint64) error {
	cur, err := s.gen.Snapshot(ctx, s.genKey)
	if err != nil {
		return fmt.Errorf("results: snapshot generation: %w", err)
	}
	if cur != gen {
		s.log.Debug("result write skipped (gen mismatch)", proximity.Fields{"ns": s.ns, "obs": gen, "cur": cur})
		return nil
	}
	payload, err := s.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("results: encode: %w", err)
	}
	k := s.key(query)
	frame := wire.Encode(gen, query, payload)
	ok, err := s.provider.Set(ctx, k, frame, s.cost(k, frame), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("result rejected by provider (pressure)", proximity.Fields{"key": k})
	}
	return nil
}

// Invalidate bumps the base generation; every stored result becomes stale.
func (s *Store) Invalidate(ctx context.Context) error {
	g, err := s.gen.Bump(ctx, s.genKey)
	if err != nil {
		return fmt.Errorf("results: bump generation: %w", err)
	}
	s.log.Debug("results invalidated", proximity.Fields{"ns": s.ns, "gen": g})
	return nil
}

// Generation returns the current base generation.
func (s *Store) Generation(ctx context.Context) (uint64, error) {
	return s.gen.Snapshot(ctx, s.genKey)
}

func (s *Store) Close(ctx context.Context) error {
	var gerr error
	if s.ownedGen {
		gerr = s.gen.Close(ctx)
	}
	return errors.Join(gerr, s.provider.Close(ctx))
}

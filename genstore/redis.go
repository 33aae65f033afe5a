package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares generations across processes and survives restarts. With a
// TTL, generation keys expire when idle; readers then see gen 0 and results
// written under a later generation self-heal.
type Redis struct {
	rdb         redis.UniversalClient
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ GenStore = (*Redis)(nil)

type RedisConfig struct {
	Client      redis.UniversalClient
	Prefix      string        // prepended to every key, e.g. "proxq:"
	TTL         time.Duration // 0 disables expiry
	CloseClient bool
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, errors.New("genstore: nil redis client")
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.Prefix, ttl: cfg.TTL, closeClient: cfg.CloseClient}, nil
}

func (s *Redis) key(k string) string { return s.prefix + "gen:" + k }

func (s *Redis) Snapshot(ctx context.Context, key string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: parse %q: %w", key, err)
	}
	return u, nil
}

// Bump pipelines INCR and EXPIRE in one round trip when a TTL is set.
func (s *Redis) Bump(ctx context.Context, key string) (uint64, error) {
	k := s.key(key)
	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

func (s *Redis) Cleanup(time.Duration) {}

func (s *Redis) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

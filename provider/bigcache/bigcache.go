// Package bigcache stores result frames in an in-process BigCache.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/proximity/provider"
)

const defaultLife = time.Hour

type Provider struct {
	c *bc.BigCache
}

var _ provider.Provider = (*Provider)(nil)

type Config struct {
	// Life is the global entry lifetime; BigCache has no per-entry TTL.
	// 0 => 1h.
	Life        time.Duration
	CleanWindow time.Duration
	Shards      int // power of two; 0 => BigCache default
	// MaxEntrySizeBytes sizes the initial shard buffers; tables are usually
	// much larger than BigCache's 500 byte default.
	MaxEntrySizeBytes  int
	HardMaxCacheSizeMB int // 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	life := cfg.Life
	if life <= 0 {
		life = defaultLife
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntrySizeBytes > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySizeBytes
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Len reports the number of stored frames.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}

// Package ristretto stores result frames in a cost-bounded Ristretto cache.
// The cost of a frame is its length in bytes.
package ristretto

import (
	"context"
	"fmt"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/proximity/provider"
)

type Provider struct {
	c *rc.Cache
}

var _ provider.Provider = (*Provider)(nil)

type Config struct {
	MaxCostBytes int64 // required
	NumCounters  int64 // 0 => 10 per expected 1 KiB frame
	BufferItems  int64 // 0 => 64
	Metrics      bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.MaxCostBytes <= 0 {
		return nil, fmt.Errorf("ristretto: MaxCostBytes must be > 0, got %d", cfg.MaxCostBytes)
	}
	counters := cfg.NumCounters
	if counters <= 0 {
		counters = max(cfg.MaxCostBytes/1024*10, 1000)
	}
	buf := cfg.BufferItems
	if buf <= 0 {
		buf = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: counters,
		MaxCost:     cfg.MaxCostBytes,
		BufferItems: buf,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set is asynchronous: a successful write becomes visible once Ristretto's
// buffers drain. See Wait.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	return p.c.SetWithTTL(key, value, cost, ttl), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

package main

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/codec"
	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/genstore"
	"github.com/unkn0wn-root/proximity/provider"
	"github.com/unkn0wn-root/proximity/provider/bigcache"
	prredis "github.com/unkn0wn-root/proximity/provider/redis"
	"github.com/unkn0wn-root/proximity/provider/ristretto"
	"github.com/unkn0wn-root/proximity/results"
)

// resultsConfig selects and configures the optional shared result tier.
type resultsConfig struct {
	Provider  string // "", bigcache, ristretto, redis
	Codec     string
	Namespace string
	TTL       time.Duration
	MaxMB     int
	MaxDecode int
	RedisAddr string
}

func (c *resultsConfig) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Provider, "results", "", "Result store: bigcache, ristretto or redis. Empty disables it.")
	flags.StringVar(&c.Codec, "results-codec", "msgpack", "Result encoding: json, msgpack, cbor or proto.")
	flags.StringVar(&c.Namespace, "results-namespace", "proxq", "Key namespace shared by cooperating processes.")
	flags.DurationVar(&c.TTL, "results-ttl", 10*time.Minute, "Stored result lifetime.")
	flags.IntVar(&c.MaxMB, "results-max-mb", 256, "In-process result store size bound in MiB.")
	flags.IntVar(&c.MaxDecode, "results-max-decode", 0, "Refuse stored results larger than this many bytes; 0 disables.")
	flags.StringVar(&c.RedisAddr, "redis-addr", "localhost:6379", "Redis address for --results redis.")
}

func (c *resultsConfig) tableCodec() (codec.Codec[*engine.Table], error) {
	var inner codec.Codec[*engine.Table]
	switch c.Codec {
	case "json":
		inner = codec.JSON[*engine.Table]{}
	case "msgpack", "":
		inner = codec.Msgpack[*engine.Table]{}
	case "cbor":
		cb, err := codec.NewCBOR[*engine.Table](false)
		if err != nil {
			return nil, err
		}
		inner = cb
	case "proto":
		inner = codec.TableProto{}
	default:
		return nil, fmt.Errorf("unknown --results-codec %q", c.Codec)
	}
	if c.MaxDecode > 0 {
		return codec.Limit[*engine.Table]{Inner: inner, MaxDecode: c.MaxDecode}, nil
	}
	return inner, nil
}

// build returns nil when no result store is configured.
func (c *resultsConfig) build(log proximity.Logger, hooks proximity.Hooks) (*results.Store, error) {
	if c.Provider == "" {
		return nil, nil
	}
	cd, err := c.tableCodec()
	if err != nil {
		return nil, err
	}

	var (
		p    provider.Provider
		gens genstore.GenStore
	)
	switch c.Provider {
	case "bigcache":
		p, err = bigcache.New(bigcache.Config{Life: c.TTL, HardMaxCacheSizeMB: c.MaxMB})
	case "ristretto":
		p, err = ristretto.New(ristretto.Config{MaxCostBytes: int64(c.MaxMB) << 20})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		p, err = prredis.New(prredis.Config{Client: rdb, CloseClient: true})
		if err == nil {
			gens, err = genstore.NewRedis(genstore.RedisConfig{Client: rdb, Prefix: c.Namespace + ":"})
		}
	default:
		return nil, fmt.Errorf("unknown --results %q", c.Provider)
	}
	if err != nil {
		return nil, err
	}

	return results.New(results.Options{
		Namespace: c.Namespace,
		Provider:  p,
		Codec:     cd,
		GenStore:  gens,
		TTL:       c.TTL,
		Logger:    log,
		Hooks:     hooks,
	})
}

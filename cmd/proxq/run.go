package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/engine"
	"github.com/unkn0wn-root/proximity/engine/sqldb"
	asynchook "github.com/unkn0wn-root/proximity/hooks/async"
	promhooks "github.com/unkn0wn-root/proximity/hooks/prom"
	zaplog "github.com/unkn0wn-root/proximity/log/zap"
)

// runCommand holds the configuration of "proxq run".
type runCommand struct {
	Driver      string
	DSN         string
	PingTimeout time.Duration

	Priority string
	Exec     bool
	NoCache  bool
	Preread  bool
	Repeat   int
	Base     string

	CacheMax      int
	CacheTTL      time.Duration
	SubmitTimeout time.Duration

	Results resultsConfig

	LogLevel    string
	MetricsAddr string
	Stats       bool

	stdout, stderr io.Writer
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &runCommand{stdout: stdout, stderr: stderr}
	ccmd := &cobra.Command{
		Use:   "run [flags] QUERY...",
		Short: "Submit queries and print their results.",
		Long: `
Submits every QUERY through one scheduler over a single database connection.
Identical reads are coalesced; with --repeat N each query is submitted N times
to show it. Queries run strictly one at a time in priority order.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmd.Run(ctx, args)
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&cmd.Driver, "driver", "postgres", "database/sql driver: postgres, mysql or sqlserver.")
	flags.StringVar(&cmd.DSN, "dsn", "", "Data source name. Prefer PROXQ_DSN to keep credentials off the command line.")
	flags.DurationVar(&cmd.PingTimeout, "ping-timeout", 30*time.Second, "Connection initialization timeout.")
	flags.StringVar(&cmd.Priority, "priority", "normal", "Request priority: high, normal or low.")
	flags.BoolVar(&cmd.Exec, "exec", false, "Run queries as statements; no results are printed.")
	flags.BoolVar(&cmd.NoCache, "no-cache", false, "Bypass the read cache.")
	flags.BoolVar(&cmd.Preread, "preread", false, "Submit reads as low priority prefetches.")
	flags.IntVar(&cmd.Repeat, "repeat", 1, "Submit each query this many times.")
	flags.StringVar(&cmd.Base, "base", "", "Base dataset query; announced before submitting.")
	flags.IntVar(&cmd.CacheMax, "cache-max", 1000, "Read cache size bound.")
	flags.DurationVar(&cmd.CacheTTL, "cache-ttl", 3*time.Hour, "Read cache TTL since last access.")
	flags.DurationVar(&cmd.SubmitTimeout, "submit-timeout", 0, "Bound on a single engine call; 0 disables.")
	flags.StringVar(&cmd.LogLevel, "log-level", "warn", "Log level: debug, info, warn or error.")
	flags.StringVar(&cmd.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running.")
	flags.BoolVar(&cmd.Stats, "stats", false, "Print scheduler stats when done.")
	cmd.Results.addFlags(flags)
	return ccmd
}

func (cmd *runCommand) Run(ctx context.Context, queries []string) error {
	prio, err := proximity.ParsePriority(cmd.Priority)
	if err != nil {
		return err
	}
	if cmd.Repeat < 1 {
		return fmt.Errorf("--repeat must be >= 1, got %d", cmd.Repeat)
	}

	zl, err := newZap(cmd.LogLevel)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck
	logger := zaplog.ZapLogger{L: zl}

	conn, err := sqldb.Open(sqldb.Config{Driver: cmd.Driver, DSN: cmd.DSN, PingTimeout: cmd.PingTimeout})
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := proximity.Options{
		Conn:            conn,
		Logger:          logger,
		CacheMaxEntries: cmd.CacheMax,
		CacheTTL:        cmd.CacheTTL,
		SubmitTimeout:   cmd.SubmitTimeout,
	}

	if cmd.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		ph, err := promhooks.New(reg)
		if err != nil {
			return err
		}
		hooks := asynchook.New(ph, 1, 1024)
		defer hooks.Close()
		opts.Hooks = hooks

		srv := &http.Server{Addr: cmd.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	store, err := cmd.Results.build(logger, opts.Hooks)
	if err != nil {
		return err
	}
	if store != nil {
		opts.Results = store
	}

	s, err := proximity.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(cctx); err != nil {
			zl.Warn("scheduler close", zap.Error(err))
		}
	}()

	select {
	case <-s.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := conn.Err(); err != nil {
		return err
	}
	if cmd.Base != "" {
		s.SetBase(cmd.Base)
	}

	var reqs []*proximity.Request
	track := proximity.OnRequest(func(r *proximity.Request) { reqs = append(reqs, r) })
	reqOpts := []proximity.RequestOption{proximity.WithPriority(prio), track}
	if cmd.NoCache {
		reqOpts = append(reqOpts, proximity.WithoutCache())
	}

	// submit everything first so identical reads coalesce
	pending := make([]pendingResult, 0, len(queries)*cmd.Repeat)
	for _, q := range queries {
		for i := 0; i < cmd.Repeat; i++ {
			p, err := cmd.submit(s, q, reqOpts)
			if err != nil {
				return err
			}
			pending = append(pending, p)
		}
	}

	var failed int
	for _, p := range pending {
		t, err := p.wait(ctx)
		if ctx.Err() != nil {
			s.Cancel(reqs...)
			return ctx.Err()
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.stderr, "Error: %s: %v\n", p.query, err)
			continue
		}
		if t != nil {
			if err := writeTable(t, cmd.stdout); err != nil {
				return err
			}
		}
	}

	if cmd.Stats {
		if err := writeStats(s.Stats(), cmd.stdout); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(pending))
	}
	return nil
}

type pendingResult struct {
	query string
	wait  func(context.Context) (*engine.Table, error)
}

func (cmd *runCommand) submit(s proximity.Scheduler, q string, opts []proximity.RequestOption) (pendingResult, error) {
	switch {
	case cmd.Exec:
		f, err := s.Exec(q, opts...)
		if err != nil {
			return pendingResult{}, err
		}
		return pendingResult{query: q, wait: func(ctx context.Context) (*engine.Table, error) {
			_, err := f.Wait(ctx)
			return nil, err
		}}, nil
	case cmd.Preread:
		f, err := s.Preread(q, opts...)
		if err != nil {
			return pendingResult{}, err
		}
		return pendingResult{query: q, wait: f.Wait}, nil
	default:
		f, err := s.Read(q, opts...)
		if err != nil {
			return pendingResult{}, err
		}
		return pendingResult{query: q, wait: f.Wait}, nil
	}
}

func newZap(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

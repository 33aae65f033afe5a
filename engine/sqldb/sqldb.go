// Package sqldb adapts a database/sql handle to engine.Conn.
//
// The handle is pinned to a single open connection so session state
// (temporary tables, SET statements) survives between queries, matching the
// one-query-at-a-time engine the scheduler expects.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/proximity/engine"
)

const defaultPingTimeout = 30 * time.Second

var ErrNilDB = errors.New("sqldb: nil db")

type Config struct {
	Driver      string        // "postgres", "mysql", "sqlserver"
	DSN         string        // driver specific data source name
	PingTimeout time.Duration // 0 => 30s
}

// Conn is an engine.Conn over database/sql.
type Conn struct {
	db    *sql.DB
	ready chan struct{}
	err   error // written once before ready is closed
}

var _ engine.Conn = (*Conn)(nil)

// Open opens cfg.DSN with cfg.Driver and starts initialization in the
// background. The returned Conn owns the handle.
func Open(cfg Config) (*Conn, error) {
	if cfg.Driver == "" {
		return nil, errors.New("sqldb: driver is required")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", cfg.Driver, err)
	}
	return New(db, cfg.PingTimeout)
}

// New wraps db. Ready closes once a ping with the given timeout completes,
// successfully or not; Err reports the outcome.
func New(db *sql.DB, pingTimeout time.Duration) (*Conn, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Conn{db: db, ready: make(chan struct{})}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.err = fmt.Errorf("sqldb: init: %w", err)
		}
		close(c.ready)
	}()
	return c, nil
}

func (c *Conn) Ready() <-chan struct{} { return c.ready }

// Err reports the initialization error once Ready is closed, nil before.
func (c *Conn) Err() error {
	select {
	case <-c.ready:
		return c.err
	default:
		return nil
	}
}

// Evaluate waits for initialization, then runs query and scans every row.
func (c *Conn) Evaluate(ctx context.Context, query string) (*engine.Table, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	t := &engine.Table{Columns: make([]engine.Column, len(types)), Rows: [][]any{}}
	for i, ct := range types {
		t.Columns[i] = engine.Column{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	vals := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			// drivers hand back text as []byte that is reused on the next Scan
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Close closes the underlying handle.
func (c *Conn) Close() error { return c.db.Close() }

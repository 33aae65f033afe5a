// Package engine defines the query engine collaborator the scheduler drives.
//
// A Conn evaluates one query at a time. The scheduler guarantees it never has
// more than one Evaluate call outstanding on a Conn.
package engine

import "context"

// Column describes one result column.
type Column struct {
	Name string `json:"name" msgpack:"name" cbor:"name"`
	Type string `json:"type,omitempty" msgpack:"type,omitempty" cbor:"type,omitempty"`
}

// Table is the tabular result of a read query. Rows are in column order.
type Table struct {
	Columns []Column `json:"columns" msgpack:"columns" cbor:"columns"`
	Rows    [][]any  `json:"rows" msgpack:"rows" cbor:"rows"`
}

// NumRows returns the number of rows, 0 for a nil table.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Conn is a stateful engine connection.
type Conn interface {
	// Ready is closed once initialization completes. Queries evaluated before
	// that are the connection's own business to queue or reject.
	Ready() <-chan struct{}

	// Evaluate runs query and returns its result. Statements that produce no
	// rows return an empty table. A non-nil error means the engine rejected
	// or failed the query.
	Evaluate(ctx context.Context, query string) (*Table, error)
}

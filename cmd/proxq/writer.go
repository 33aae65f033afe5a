package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"

	"github.com/unkn0wn-root/proximity"
	"github.com/unkn0wn-root/proximity/engine"
)

const nullValue = "NULL"

// writeTable renders t followed by a row count.
func writeTable(t *engine.Table, out io.Writer) error {
	w := table.NewWriter()
	w.SetOutputMirror(out)

	// Don't uppercase the header values.
	w.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	w.AppendHeader(header)
	for _, r := range t.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			// go-pretty doesn't expect nil values
			if v == nil {
				v = nullValue
			}
			row[i] = v
		}
		w.AppendRow(row)
	}
	w.Render()

	_, err := fmt.Fprintf(out, "(%d rows)\n\n", t.NumRows())
	return err
}

func writeStats(st proximity.Stats, out io.Writer) error {
	w := table.NewWriter()
	w.SetOutputMirror(out)
	w.Style().Format.Header = text.FormatDefault
	w.AppendHeader(table.Row{"stat", "value"})
	w.AppendRows([]table.Row{
		{"submitted", st.Submitted},
		{"resolved", st.Resolved},
		{"failed", st.Failed},
		{"cancelled", st.Cancelled},
		{"cleared", st.Cleared},
		{"cache hits", st.CacheHits},
		{"cache misses", st.CacheMisses},
		{"store hits", st.StoreHits},
		{"cache entries", st.CacheEntries},
	})
	w.Render()
	return nil
}

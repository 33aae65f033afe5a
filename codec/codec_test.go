package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/unkn0wn-root/proximity/engine"
)

func sampleTable() *engine.Table {
	return &engine.Table{
		Columns: []engine.Column{{Name: "name", Type: "VARCHAR"}, {Name: "n", Type: "INTEGER"}},
		Rows:    [][]any{{"a", int64(1)}, {"b", nil}},
	}
}

// cellsEqual compares cells loosely since numeric types differ per format.
func cellsEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func assertTable(t *testing.T, name string, got *engine.Table) {
	t.Helper()
	want := sampleTable()
	if len(got.Columns) != len(want.Columns) {
		t.Fatalf("%s: columns=%v", name, got.Columns)
	}
	for i := range want.Columns {
		if got.Columns[i] != want.Columns[i] {
			t.Fatalf("%s: column %d got=%v want=%v", name, i, got.Columns[i], want.Columns[i])
		}
	}
	if len(got.Rows) != len(want.Rows) {
		t.Fatalf("%s: rows=%v", name, got.Rows)
	}
	for i := range want.Rows {
		for j := range want.Rows[i] {
			if !cellsEqual(got.Rows[i][j], want.Rows[i][j]) {
				t.Fatalf("%s: cell %d,%d got=%v want=%v", name, i, j, got.Rows[i][j], want.Rows[i][j])
			}
		}
	}
}

func TestTableCodecs(t *testing.T) {
	codecs := map[string]Codec[*engine.Table]{
		"json":    JSON[*engine.Table]{},
		"msgpack": Msgpack[*engine.Table]{},
		"cbor":    MustCBOR[*engine.Table](true),
		"proto":   TableProto{},
	}
	for name, c := range codecs {
		b, err := c.Encode(sampleTable())
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		got, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		assertTable(t, name, got)
	}
}

func TestTableProtoStringifiesTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := &engine.Table{Columns: []engine.Column{{Name: "ts"}}, Rows: [][]any{{ts}}}
	b, err := TableProto{}.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := TableProto{}.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Rows[0][0] != "2024-05-01T12:00:00Z" {
		t.Fatalf("got=%v", out.Rows[0][0])
	}
}

func TestLimit(t *testing.T) {
	c := Limit[*engine.Table]{Inner: JSON[*engine.Table]{}, MaxDecode: 8, MaxEncode: 8}
	if _, err := c.Encode(sampleTable()); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("encode: got=%v want ErrTooLarge", err)
	}
	if _, err := c.Decode(make([]byte, 9)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("decode: got=%v want ErrTooLarge", err)
	}

	unlimited := Limit[*engine.Table]{Inner: JSON[*engine.Table]{}}
	b, err := unlimited.Encode(sampleTable())
	if err != nil {
		t.Fatalf("unlimited encode: %v", err)
	}
	if _, err := unlimited.Decode(b); err != nil {
		t.Fatalf("unlimited decode: %v", err)
	}
}

func TestCellTypes(t *testing.T) {
	const big = int64(1) << 60
	in := &engine.Table{Columns: []engine.Column{{Name: "id"}}, Rows: [][]any{{big}}}

	jb, _ := JSON[*engine.Table]{}.Encode(in)
	jt, err := JSON[*engine.Table]{}.Decode(jb)
	if err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if n, ok := jt.Rows[0][0].(json.Number); !ok || n.String() != "1152921504606846976" {
		t.Fatalf("json cell got=%T %v", jt.Rows[0][0], jt.Rows[0][0])
	}

	mb, _ := Msgpack[*engine.Table]{}.Encode(in)
	mt, err := Msgpack[*engine.Table]{}.Decode(mb)
	if err != nil {
		t.Fatalf("msgpack decode: %v", err)
	}
	if v, ok := mt.Rows[0][0].(int64); !ok || v != big {
		t.Fatalf("msgpack cell got=%T %v", mt.Rows[0][0], mt.Rows[0][0])
	}

	cb := MustCBOR[*engine.Table](false)
	b, _ := cb.Encode(in)
	ct, err := cb.Decode(b)
	if err != nil {
		t.Fatalf("cbor decode: %v", err)
	}
	if v, ok := ct.Rows[0][0].(int64); !ok || v != big {
		t.Fatalf("cbor cell got=%T %v", ct.Rows[0][0], ct.Rows[0][0])
	}
}

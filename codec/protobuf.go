package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/proximity/engine"
)

// TableProto encodes a table as a protobuf google.protobuf.Struct:
//
//	{"columns": [{"name": ..., "type": ...}, ...], "rows": [[...], ...]}
//
// Cells go through structpb, so numbers decode as float64, []byte as a
// base64 string and time.Time as an RFC 3339 string.
type TableProto struct{}

var _ Codec[*engine.Table] = TableProto{}

func (TableProto) Encode(t *engine.Table) ([]byte, error) {
	if t == nil {
		t = &engine.Table{}
	}
	cols := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = map[string]any{"name": c.Name, "type": c.Type}
	}
	rows := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		cells := make([]any, len(r))
		for j, v := range r {
			cells[j] = protoCell(v)
		}
		rows[i] = cells
	}
	s, err := structpb.NewStruct(map[string]any{"columns": cols, "rows": rows})
	if err != nil {
		return nil, fmt.Errorf("codec: table to struct: %w", err)
	}
	return proto.Marshal(s)
}

func (TableProto) Decode(b []byte) (*engine.Table, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	t := &engine.Table{}
	for _, cv := range s.GetFields()["columns"].GetListValue().GetValues() {
		f := cv.GetStructValue().GetFields()
		t.Columns = append(t.Columns, engine.Column{
			Name: f["name"].GetStringValue(),
			Type: f["type"].GetStringValue(),
		})
	}
	rv := s.GetFields()["rows"].GetListValue().GetValues()
	t.Rows = make([][]any, 0, len(rv))
	for _, r := range rv {
		t.Rows = append(t.Rows, r.GetListValue().AsSlice())
	}
	return t, nil
}

// protoCell maps engine cell types structpb does not accept.
func protoCell(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case nil, bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}

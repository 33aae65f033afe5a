package codec

import (
	"bytes"
	"encoding/json"
)

// JSON uses encoding/json. Numbers in untyped positions (table cells) decode
// as json.Number so 64-bit ids survive the round trip.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	err := dec.Decode(&v)
	return v, err
}

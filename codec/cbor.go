package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// maxCBORElements bounds arrays and maps on decode. CBOR's default of 131072
// is below the row count of a moderately large table.
const maxCBORElements = 1 << 24

// CBOR encodes with fxamacker/cbor. The zero value is not usable; construct
// with NewCBOR or MustCBOR.
//
// Times are written as RFC 3339 strings, nested maps in cells decode as
// map[string]any like the JSON codec, and integers decode as int64.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the codec. deterministic selects RFC 8949 core
// deterministic encoding, for byte-stable frames across processes.
func NewCBOR[V any](deterministic bool) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	dm, err := cbor.DecOptions{
		MaxArrayElements: maxCBORElements,
		MaxMapPairs:      maxCBORElements,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		IntDec:           cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is NewCBOR for package-level variables; it panics on error.
func MustCBOR[V any](deterministic bool) CBOR[V] {
	c, err := NewCBOR[V](deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

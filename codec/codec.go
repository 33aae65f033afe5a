// Package codec converts values to and from bytes for the result store.
//
// Generic codecs (JSON, Msgpack, CBOR) work for any V. TableProto is specific
// to *engine.Table. Row cells decode back into each format's natural Go types
// (JSON numbers become float64, msgpack keeps integer widths), so cells read
// from a store may differ in type from what the engine produced.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

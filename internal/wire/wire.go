// Package wire frames result entries stored in a provider.
//
// Entry: magic(4) | ver(1) | gen(u64 be) | qlen(u32 be) | query(qlen) | vlen(u32 be) | payload(vlen)
//
// The query text is kept in the frame because storage keys are hashes of it;
// a reader compares it to rule out collisions.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1
	header       = 4 + 1 + 8
)

var (
	ErrCorrupt = errors.New("proximity: corrupt result entry")
	magic4     = [...]byte{'P', 'R', 'X', 'R'}
)

// Entry is a decoded frame. Payload aliases the input buffer.
type Entry struct {
	Gen     uint64
	Query   string
	Payload []byte
}

func Encode(gen uint64, query string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(header + 4 + len(query) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(query)))
	buf.Write(u4[:])
	buf.WriteString(query)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])
	buf.Write(payload)

	return buf.Bytes()
}

func Decode(b []byte) (Entry, error) {
	if len(b) < header || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	off := 5
	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	query, off, ok := chunk(b, off)
	if !ok {
		return Entry{}, ErrCorrupt
	}
	payload, off, ok := chunk(b, off)
	if !ok || off != len(b) {
		return Entry{}, ErrCorrupt
	}
	return Entry{Gen: gen, Query: string(query), Payload: payload}, nil
}

// chunk reads a u32 length prefixed slice at off.
func chunk(b []byte, off int) ([]byte, int, bool) {
	if off+4 > len(b) {
		return nil, off, false
	}
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 || n > len(b)-off { // overflow-safe bound check
		return nil, off, false
	}
	return b[off : off+n], off + n, true
}

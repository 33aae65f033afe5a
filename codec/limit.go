package codec

import (
	"errors"
	"fmt"
)

// Limit wraps another codec to cap payload size in both directions.
// A result store shared with other processes may hold entries written by a
// different configuration; Limit keeps a huge table from being decoded, and
// keeps this process from writing one.
// If MaxDecode or MaxEncode <= 0, that direction is unlimited.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int // bytes; checked before Inner runs
	MaxEncode int // bytes
}

// ErrTooLarge is wrapped by Limit errors.
var ErrTooLarge = errors.New("codec: payload too large")

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}

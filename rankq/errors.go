package rankq

import (
	"errors"
	"fmt"
)

// ErrInvalidRank is matched by every *RankError.
var ErrInvalidRank = errors.New("rankq: invalid priority rank")

// RankError reports an enqueue outside [0, Ranks).
type RankError struct {
	Rank  int
	Ranks int
}

func (e *RankError) Error() string {
	return fmt.Sprintf("rankq: invalid priority rank %d (valid 0..%d)", e.Rank, e.Ranks-1)
}

func (e *RankError) Unwrap() error { return ErrInvalidRank }

package proximity

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/proximity/rankq"
)

var (
	// ErrCancelled rejects a queued request removed by Cancel.
	ErrCancelled = errors.New("proximity: request cancelled")
	// ErrCleared rejects a queued request dropped by ClearRequests or SetBase.
	ErrCleared = errors.New("proximity: request cleared")
	// ErrClosed rejects requests queued at Close and any submitted after it.
	ErrClosed = errors.New("proximity: scheduler closed")

	// ErrInvalidRank is returned synchronously for a priority outside the
	// configured ranks.
	ErrInvalidRank = rankq.ErrInvalidRank
)

// SubmissionError reports that the engine failed a query. Only the request
// that carried the query is rejected.
type SubmissionError struct {
	Query string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("proximity: query failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsBenign reports whether err is a cancellation or clear, which callers
// should not treat as an application error.
func IsBenign(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrCleared)
}

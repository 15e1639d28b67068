package foodlog

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Pipeline error taxonomy. One item's failure aborts only that item;
// handlers match on these with errors.Is.
var (
	// ErrValidation marks a bad candidate or entry (missing name,
	// out-of-range calories). User-visible, aborts only the one item.
	ErrValidation = errors.New("validation failed")

	// ErrResolution marks both nutrition sources failing. Recovered
	// internally via the heuristic fallback and never escapes Resolve;
	// exported so tests can assert the recovery path.
	ErrResolution = errors.New("nutrition resolution failed")

	// ErrPersistence marks a failed gateway write. Retryable.
	ErrPersistence = errors.New("persistence failed")

	// ErrTimeout marks a resolution or persistence step exceeding its
	// budget. Distinct from ErrPersistence: the UI offers manual entry.
	ErrTimeout = errors.New("step timed out")

	// ErrCancelled marks work aborted by a user cancel. Silent: no
	// user-facing message, state simply unwinds.
	ErrCancelled = errors.New("cancelled")
)

// IsNotFound returns true if the error is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

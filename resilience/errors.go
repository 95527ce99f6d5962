package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is matched by the error Retry returns when every
	// attempt failed with a retryable error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// ExhaustedError reports that all attempts failed. It matches
// ErrMaxRetriesExceeded and unwraps to the last attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("resilience: %d attempts failed: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is reports whether target is ErrMaxRetriesExceeded.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

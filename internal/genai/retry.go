package genai

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryableError indicates a transient failure: rate limiting, overload,
// a 5xx response, or a network timeout.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("retryable error: %s", Truncate(e.Message, 200))
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, Truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// RetryBudget is the longest a single call can take with the given per-attempt
// timeout and attempt count, waits included.
func RetryBudget(timeout time.Duration, attempts int) time.Duration {
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	total := time.Duration(attempts) * timeout
	for i := range attempts - 1 {
		base := min(time.Duration(1<<uint(min(i, 10)))*2*time.Second, 30*time.Second)
		total += base + base/2
	}
	return total
}

// Backoff returns the wait before retry n (0-indexed): 2s doubling, capped
// at 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(attempt, 10))) * 2 * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

package tracking

import (
	"math/rand"
	"time"
)

const (
	// baseRetryDelay is the wait after the first failed batch attempt.
	baseRetryDelay = 2 * time.Second

	// maxRetryDelay caps the exponential growth.
	maxRetryDelay = 30 * time.Second

	// retryJitter is the ±fraction applied to every delay.
	retryJitter = 0.2
)

// retryDelay returns the wait before retry number attempt (1-indexed):
// doubling from baseRetryDelay, capped at maxRetryDelay, with ±20% jitter.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := baseRetryDelay
	for i := 1; i < attempt && base < maxRetryDelay; i++ {
		base *= 2
	}
	if base > maxRetryDelay {
		base = maxRetryDelay
	}

	jitterRange := float64(base) * retryJitter
	jitter := (rand.Float64()*2 - 1) * jitterRange
	return time.Duration(float64(base) + jitter)
}

package mailer

import (
	"math/rand"
	"time"
)

// Retry delays for exponential backoff.
// Attempt 1: 1 min, Attempt 2: 5 min, Attempt 3: 30 min,
// Attempt 4: 2 hours, Attempt 5: 12 hours
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	12 * time.Hour,
}

const (
	// DefaultMaxAttempts is the default maximum delivery attempts.
	DefaultMaxAttempts = 5

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the delay before the next attempt, with ±20% jitter.
// attemptCount is the number of attempts already made, minus one.
func NextRetryDelay(attemptCount int) time.Duration {
	attemptCount = max(attemptCount, 0)
	attemptCount = min(attemptCount, len(retryDelays)-1)

	base := retryDelays[attemptCount]
	jitter := (rand.Float64()*2 - 1) * float64(base) * JitterFactor

	return time.Duration(float64(base) + jitter)
}

// NextRetryAt returns when the next attempt should run.
func NextRetryAt(now time.Time, attemptCount int) time.Time {
	return now.Add(NextRetryDelay(attemptCount))
}

// IsExhausted returns true if max attempts have been reached.
func IsExhausted(attemptCount, maxAttempts int) bool {
	return attemptCount >= maxAttempts
}

// MaxDeliveryWindow is the longest an email can stay in the queue before it
// is exhausted, including jitter.
func MaxDeliveryWindow() time.Duration {
	var total time.Duration
	for _, d := range retryDelays[:DefaultMaxAttempts-1] {
		total += d
	}
	return time.Duration(float64(total) * (1 + JitterFactor))
}

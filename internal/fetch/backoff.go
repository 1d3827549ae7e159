package fetch

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for network requests
type RetryConfig struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	RetryIf     func(*http.Response, error) bool
}

// BackoffStrategy calculates the delay before a retry
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff strategy
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// NextDelay calculates the next delay for exponential backoff
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}

	delay := float64(e.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if e.MaxDelay > 0 && time.Duration(delay) > e.MaxDelay {
		delay = float64(e.MaxDelay)
	}
	if e.Jitter {
		// ±25%
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = float64(e.BaseDelay)
	}
	return time.Duration(delay)
}

// DefaultRetry retries idempotent failures three times
func DefaultRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		Backoff: &ExponentialBackoff{
			BaseDelay: 200 * time.Millisecond,
			MaxDelay:  5 * time.Second,
			Jitter:    true,
		},
		RetryIf: DefaultRetryCondition,
	}
}

// DefaultRetryCondition retries network errors, server errors and rate limiting
func DefaultRetryCondition(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

package rest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoTokens is returned by Wait when the bucket is empty and never refills
var ErrNoTokens = errors.New("rate limiter has no tokens and zero refill rate")

// RateLimiter is a token bucket that gates outbound requests.
// It only delays requests; it never repeats them.
type RateLimiter struct {
	rate  float64 // tokens per second
	burst int     // maximum number of tokens in bucket

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a token bucket starting full.
// A refilling bucket holds at least one token.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond > 0 && burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:   requestsPerSecond,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Rate returns the configured rate (tokens per second)
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Burst returns the configured burst capacity
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

// TryAcquire takes a token without blocking
func (rl *RateLimiter) TryAcquire() bool {
	_, ok := rl.reserve()
	return ok
}

// Wait blocks until a token is taken or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, ok := rl.reserve()
		if ok {
			return nil
		}
		if rl.rate <= 0 {
			return ErrNoTokens
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset restores the bucket to full capacity
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = float64(rl.burst)
	rl.last = time.Now()
}

// reserve takes a token if one is available, otherwise returns the time
// until the next token.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}
	rl.last = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return 0, true
	}
	if rl.rate <= 0 {
		return 0, false
	}

	missing := 1.0 - rl.tokens
	return time.Duration(missing / rl.rate * float64(time.Second)), false
}

// Package server implements a token bucket limiter that throttles inbound
// chat frames per session so a flooding client cannot starve its room.
package server

import (
	"sync"
	"time"
)

// rateLimiter grants one token per inbound frame. Tokens refill continuously
// at burst-per-interval, so a session that goes quiet earns its burst back.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		tokens:     float64(burst),
		capacity:   float64(burst),
		refillRate: float64(burst) / interval.Seconds(),
		lastRefill: time.Now(),
	}
}

// allow consumes one token, reporting false when the bucket is empty. Callers
// drop the frame on false; running dry never ends the session.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// refillLocked credits tokens for the time elapsed since the last refill,
// capped at the configured burst.
func (rl *rateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now
}

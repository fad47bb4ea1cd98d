package queue

import (
	"math/rand"
	"time"
)

// Backoff computes the retry delay as base*2^attempt plus additive jitter
// uniform in [0, base). The jitter de-synchronizes retry storms across
// jobs that failed in the same tick.
func Backoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30 // guard against overflow; no real job retries this many times
	}
	exp := base << uint(attempt)
	var jitter time.Duration
	if base > 0 {
		jitter = time.Duration(rand.Int63n(int64(base)))
	}
	return exp + jitter
}

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsWithAttempt(t *testing.T) {
	base := 100 * time.Millisecond

	d0 := Backoff(0, base)
	d5 := Backoff(5, base)

	assert.GreaterOrEqual(t, d0, base)
	assert.LessOrEqual(t, d0, 2*base)

	assert.GreaterOrEqual(t, d5, base<<5)
	assert.LessOrEqual(t, d5, base<<5+base)
}

func TestBackoff_ClampsNegativeAttempt(t *testing.T) {
	base := 50 * time.Millisecond
	d := Backoff(-3, base)
	assert.GreaterOrEqual(t, d, base)
	assert.LessOrEqual(t, d, 2*base)
}

func TestBackoff_ClampsLargeAttempt(t *testing.T) {
	base := time.Millisecond
	assert.NotPanics(t, func() {
		Backoff(1000, base)
	})
}

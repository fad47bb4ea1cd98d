package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeaderElector_HeldIsFalseBeforeAcquire(t *testing.T) {
	le := NewLeaderElector(nil, 42)
	assert.False(t, le.Held())
}

func TestLeaderElector_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	le := NewLeaderElector(nil, 42)
	assert.NotPanics(t, func() {
		le.Release(nil)
	})
	assert.False(t, le.Held())
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusDead, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	nonTerminal := []Status{StatusPending, StatusScheduled, StatusProcessing}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestPriority_Weight(t *testing.T) {
	assert.Less(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Less(t, PriorityMedium.Weight(), PriorityLow.Weight())

	// the gap between classes must dominate any plausible ms timestamp
	const oneYearMillis = float64(365 * 24 * 60 * 60 * 1000)
	assert.Greater(t, PriorityMedium.Weight()-PriorityHigh.Weight(), oneYearMillis*1000)
}

func TestPriority_Valid(t *testing.T) {
	assert.True(t, PriorityHigh.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityLow.Valid())
	assert.False(t, Priority("URGENT").Valid())
	assert.False(t, Priority("").Valid())
}

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/enqio/enq/internal/domain"
)

func TestScore_ClassDominatesTies(t *testing.T) {
	now := time.Now()
	later := now.Add(24 * time.Hour)

	highNow := score(domain.PriorityHigh, now)
	highLater := score(domain.PriorityHigh, later)
	mediumNow := score(domain.PriorityMedium, now)
	lowNow := score(domain.PriorityLow, now)

	assert.Less(t, highNow, highLater, "within a class, earlier enqueue sorts first")
	assert.Less(t, highLater, mediumNow, "any HIGH job sorts before any MEDIUM job")
	assert.Less(t, mediumNow, lowNow)
}

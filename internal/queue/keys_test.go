package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueKeys_ShareHashTag(t *testing.T) {
	const q = "orders"

	assert.Equal(t, "orders", hashTag(waitingKey(q)))
	assert.Equal(t, "orders", hashTag(processingKey(q)))
	assert.Equal(t, "orders", hashTag(delayedKey(q)))
	assert.Equal(t, "orders", hashTag(dlqKey(q)))
}

func TestQueueKeys_DistinctPrefixes(t *testing.T) {
	const q = "orders"

	keys := []string{waitingKey(q), processingKey(q), delayedKey(q), dlqKey(q)}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
}

func TestPoisonKey_TaggedByJobID(t *testing.T) {
	assert.Equal(t, "job-123", hashTag(poisonKey("job-123")))
	assert.NotEqual(t, poisonKey("job-1"), poisonKey("job-2"))
}

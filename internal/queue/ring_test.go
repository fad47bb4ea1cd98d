package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashTag(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"waiting:{orders}", "orders"},
		{"processing:{orders}", "orders"},
		{"poison:{job-123}", "job-123"},
		{"no-braces-here", "no-braces-here"},
		{"unclosed:{orders", "unclosed:{orders"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, hashTag(tc.key), "key %q", tc.key)
	}
}

func TestRendezvousHash_StableForSameKey(t *testing.T) {
	h := newRendezvousHash([]string{"shard-a", "shard-b", "shard-c"})

	first := h.Get("waiting:{orders}")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, h.Get("waiting:{orders}"))
	}
}

func TestRendezvousHash_SameQueueColocates(t *testing.T) {
	h := newRendezvousHash([]string{"shard-a", "shard-b", "shard-c"})

	waiting := h.Get(waitingKey("orders"))
	processing := h.Get(processingKey("orders"))
	delayed := h.Get(delayedKey("orders"))
	dlq := h.Get(dlqKey("orders"))

	assert.Equal(t, waiting, processing)
	assert.Equal(t, waiting, delayed)
	assert.Equal(t, waiting, dlq)
}

func TestShardName(t *testing.T) {
	assert.Equal(t, "shard-a", shardName(0))
	assert.Equal(t, "shard-b", shardName(1))
	assert.Equal(t, "shard-z", shardName(25))
}

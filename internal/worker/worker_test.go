package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_AppliesDefaults(t *testing.T) {
	w := New(Options{}, nil, nil, nil, nil, nil)

	assert.Equal(t, 1, w.opts.Concurrency)
	assert.Equal(t, 100*time.Millisecond, w.opts.PollInterval)
	assert.Equal(t, 10*time.Second, w.opts.HeartbeatEvery)
}

func TestNew_PreservesExplicitOptions(t *testing.T) {
	opts := Options{
		Concurrency:    8,
		PollInterval:   50 * time.Millisecond,
		HeartbeatEvery: 5 * time.Second,
	}
	w := New(opts, nil, nil, nil, nil, nil)

	assert.Equal(t, 8, w.opts.Concurrency)
	assert.Equal(t, 50*time.Millisecond, w.opts.PollInterval)
	assert.Equal(t, 5*time.Second, w.opts.HeartbeatEvery)
}

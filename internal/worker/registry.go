// Package worker implements the concurrency-bounded dequeue/execute/
// finalize loop.
package worker

import (
	"context"
	"sync"
)

// Handler is the contract a job's type resolves to: invoked with the
// job's opaque payload, returns an opaque result or an error. Handlers
// must be safely re-runnable — the queue delivers at-least-once.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Registry is the typed dispatch table from job type to Handler.
// Populate it before calling Worker.Run; it is safe for concurrent use
// but is expected to be written once at startup and read thereafter.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds jobType to h, replacing any existing binding.
func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Resolve looks up the handler for jobType.
func (r *Registry) Resolve(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

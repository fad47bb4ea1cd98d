package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/enqio/enq/internal/worker"
)

// registerBuiltinHandlers wires the handler types every deployment gets
// for free: "echo" for smoke-testing the pipeline end to end, and
// "always-fail" for exercising retry/backoff and dead-lettering without
// needing a real downstream integration.
func registerBuiltinHandlers(reg *worker.Registry) {
	reg.Register("echo", echoHandler)
	reg.Register("always-fail", alwaysFailHandler)
}

func echoHandler(ctx context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func alwaysFailHandler(ctx context.Context, payload []byte) ([]byte, error) {
	return nil, errors.New("always-fail handler: deliberate failure")
}

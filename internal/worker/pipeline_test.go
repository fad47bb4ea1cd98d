package worker

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRunHandler_ReturnsResult(t *testing.T) {
	h := func(ctx context.Context, payload []byte) ([]byte, error) {
		return append([]byte("got:"), payload...), nil
	}

	out, err := runHandler(context.Background(), h, []byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("got:x"), out)
}

func TestRunHandler_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	h := func(ctx context.Context, payload []byte) ([]byte, error) {
		return nil, want
	}

	_, err := runHandler(context.Background(), h, nil)
	assert.ErrorIs(t, err, want)
}

func TestRunHandler_RecoversPanic(t *testing.T) {
	h := func(ctx context.Context, payload []byte) ([]byte, error) {
		panic("handler exploded")
	}

	out, err := runHandler(context.Background(), h, nil)
	assert.Nil(t, out)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
}

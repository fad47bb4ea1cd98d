package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry()

	echo := func(ctx context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	}
	reg.Register("echo", echo)

	h, ok := reg.Resolve("echo")
	assert.True(t, ok)
	assert.NotNil(t, h)

	out, err := h(context.Background(), []byte("hi"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("hi"), out)
}

func TestRegistry_ResolveUnknownType(t *testing.T) {
	reg := NewRegistry()
	h, ok := reg.Resolve("missing")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestRegistry_RegisterReplacesExisting(t *testing.T) {
	reg := NewRegistry()
	reg.Register("job", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("first"), nil
	})
	reg.Register("job", func(ctx context.Context, payload []byte) ([]byte, error) {
		return []byte("second"), nil
	})

	h, ok := reg.Resolve("job")
	assert.True(t, ok)
	out, err := h(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), out)
}

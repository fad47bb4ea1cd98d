package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("queue", "must be 1-100 characters")

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "queue", verr.Field)
	assert.Equal(t, "must be 1-100 characters", verr.Message)
	assert.True(t, errors.Is(err, ErrValidation))
}

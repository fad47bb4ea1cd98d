package intake

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/enqio/enq/internal/domain"
)

func validInput() CreateInput {
	return CreateInput{
		Queue:    "orders",
		Type:     "send-email",
		Priority: domain.PriorityMedium,
		Payload:  json.RawMessage(`{"to":"a@example.com"}`),
	}
}

func TestValidateCreate_Valid(t *testing.T) {
	assert.NoError(t, validateCreate(validInput()))
}

func TestValidateCreate_QueueLength(t *testing.T) {
	in := validInput()
	in.Queue = ""
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "queue", verr.Field)
}

func TestValidateCreate_TypeLength(t *testing.T) {
	in := validInput()
	in.Type = ""
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)
}

func TestValidateCreate_InvalidPriority(t *testing.T) {
	in := validInput()
	in.Priority = domain.Priority("URGENT")
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)
}

func TestValidateCreate_InvalidPayload(t *testing.T) {
	in := validInput()
	in.Payload = json.RawMessage(`not json`)
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "payload", verr.Field)
}

func TestValidateCreate_EmptyPayload(t *testing.T) {
	in := validInput()
	in.Payload = nil
	err := validateCreate(in)
	assert.Error(t, err)
}

func TestValidateCreate_NegativeMaxRetries(t *testing.T) {
	in := validInput()
	negative := -1
	in.MaxRetries = &negative
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "maxRetries", verr.Field)
}

func TestValidateCreate_VisibilityTimeoutBounds(t *testing.T) {
	in := validInput()

	tooSmall := time.Second
	in.VisibilityTimeout = &tooSmall
	err := validateCreate(in)
	assert.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "visibilityTimeout", verr.Field)

	tooLarge := 2 * time.Hour
	in.VisibilityTimeout = &tooLarge
	assert.Error(t, validateCreate(in))

	ok := time.Minute
	in.VisibilityTimeout = &ok
	assert.NoError(t, validateCreate(in))
}

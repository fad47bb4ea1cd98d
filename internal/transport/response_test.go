package transport

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enqio/enq/internal/domain"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError_ValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.NewValidationError("queue", "must be 1-100 characters"))

	assert.Equal(t, 400, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "queue", body.Field)
	assert.Equal(t, "must be 1-100 characters", body.Error)
}

func TestWriteError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.ErrNotFound)
	assert.Equal(t, 404, rec.Code)
}

func TestWriteError_Conflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.ErrConflict)
	assert.Equal(t, 409, rec.Code)
}

func TestWriteError_Unknown(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("something unexpected"))
	assert.Equal(t, 500, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "internal error", body.Error)
}

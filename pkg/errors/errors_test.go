package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetTypeAndStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		typ    ErrorType
		status int
	}{
		{NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest},
		{NewNotFoundError("plan"), ErrorTypeNotFound, http.StatusNotFound},
		{NewConflictError("duplicate"), ErrorTypeConflict, http.StatusConflict},
		{NewUnavailableError("throttled"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.typ, tt.err.Type)
		assert.Equal(t, tt.status, tt.err.HTTPStatus)
	}
}

func TestNotFoundMessageNamesResource(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: subscription not found", NewNotFoundError("subscription").Error())
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewInternalError("wrapper").WithCause(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "root cause")
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	appErr := NewConflictError("duplicate key")
	wrapped := fmt.Errorf("while creating plan: %w", appErr)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrorTypeConflict, got.Type)

	assert.Nil(t, GetAppError(stderrors.New("plain")))
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.True(t, IsConflict(NewConflictError("x")))
	assert.True(t, IsUnavailable(NewUnavailableError("x")))

	assert.False(t, IsConflict(NewValidationError("x")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestWithDetailAccumulates(t *testing.T) {
	err := NewValidationError("unknown resourceIds").
		WithDetail("resourceIds", []string{"a", "b"}).
		WithDetail("count", 2)

	assert.Equal(t, []string{"a", "b"}, err.Details["resourceIds"])
	assert.Equal(t, 2, err.Details["count"])
}

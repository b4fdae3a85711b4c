package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("coupon", "c-123")
	assert.Equal(t, "NOT_FOUND: coupon with id c-123 not found: resource not found", err.Error())

	wrapped := Internal(errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	err := NotFound("program", "p-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	cause := errors.New("boom")
	assert.True(t, errors.Is(Internal(cause), cause))
}

func TestNew_SentinelIdentity(t *testing.T) {
	sentinel := New("DAILY_LIMIT_EXCEEDED", "daily free spin limit reached", http.StatusConflict)

	// Sentinels declared once compare by identity through errors.Is.
	wrapped := fmt.Errorf("spin rejected: %w", sentinel)
	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", appErr.Code)
	assert.True(t, errors.Is(wrapped, ErrRejected))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"app error", New("COUPON_EXPIRED", "coupon has expired", http.StatusGone), http.StatusGone},
		{"not found sentinel", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"already exists sentinel", fmt.Errorf("x: %w", ErrAlreadyExists), http.StatusConflict},
		{"invalid input sentinel", fmt.Errorf("x: %w", ErrInvalidInput), http.StatusBadRequest},
		{"rejected sentinel", fmt.Errorf("x: %w", ErrRejected), http.StatusUnprocessableEntity},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

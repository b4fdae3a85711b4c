package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spinRequest struct {
	CustomerID string `validate:"required,uuid"`
	Kind       string `validate:"required,oneof=FREE POINTS_EXCHANGE"`
}

func TestValidate_Success(t *testing.T) {
	req := spinRequest{
		CustomerID: "7b6cf1f4-41e4-4b8e-9df2-0b7a2c5f9f01",
		Kind:       "FREE",
	}
	assert.NoError(t, Validate(req))
}

func TestValidate_FieldErrors(t *testing.T) {
	req := spinRequest{CustomerID: "not-a-uuid", Kind: "LOTTERY"}

	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["CustomerID"])
	assert.Equal(t, "must be one of: FREE POINTS_EXCHANGE", fields["Kind"])
	assert.Contains(t, err.Error(), "CustomerID")
}

func TestValidate_RequiredMissing(t *testing.T) {
	err := Validate(spinRequest{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["CustomerID"])
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"domain error", Invalid("op", "bad input"), EINVALID},
		{"wrapped domain error", fmt.Errorf("outer: %w", NotFound("op", "order", "EB-2026-000001")), ENOTFOUND},
		{"plain error", errors.New("boom"), EINTERNAL},
		{"sentinel", ErrPaymentAlreadyProcessed, ECONFLICT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad input", ErrorMessage(Invalid("op", "bad input")))

	// Internal causes never leak to users.
	internal := Internal(errors.New("pq: connection refused"), "op", "db down")
	assert.Equal(t, "An internal error occurred. Please try again later.", ErrorMessage(internal))
	assert.Equal(t, "An internal error occurred. Please try again later.", ErrorMessage(errors.New("raw")))
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapError(cause, EPAYMENT, "checkout.intent", "provider rejected")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, EPAYMENT, ErrorCode(err))
	assert.Contains(t, err.Error(), "checkout.intent")

	assert.NoError(t, WrapError(nil, EPAYMENT, "op", "msg"))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrDuplicateActiveReturn, ECONFLICT))
	assert.False(t, IsCode(ErrDuplicateActiveReturn, EINVALID))
}

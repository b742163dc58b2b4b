package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"validation", NewValidationError("Quantity must be positive"), ErrValidation, true},
		{"not found", NewNotFoundError("Quote"), ErrNotFound, true},
		{"invalid state", NewInvalidStateError("Quote is not accepted", "draft"), ErrInvalidState, true},
		{"conflict", NewConflictError("Invoice already issued"), ErrConflict, true},
		{"unavailable", NewUnavailableError("Counter store failed", errors.New("dial tcp")), ErrUnavailable, true},
		{"different code", NewConflictError("x"), ErrNotFound, false},
		{"wrapped", fmt.Errorf("issue invoice: %w", NewNotFoundError("Quote")), ErrNotFound, true},
		{"plain error", errors.New("boom"), ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNewInvalidStateError_ExposesCurrentState(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInvalidStateError("Quote must be accepted", "refused"))

	state, ok := CurrentState(err)
	require.True(t, ok)
	assert.Equal(t, "refused", state)

	_, ok = CurrentState(NewConflictError("x"))
	assert.False(t, ok)
}

func TestNewUnavailableError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailableError("Sequence store unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Sequence store unavailable: connection refused", err.Error())
}

func TestDomainError_WithDetailDoesNotMutateOriginal(t *testing.T) {
	base := NewConflictError("Invoice changed")
	withID := base.WithDetail("invoice_id", "abc")

	assert.Nil(t, base.Details)
	assert.Equal(t, "abc", withID.Details["invoice_id"])
	assert.ErrorIs(t, withID, ErrConflict)
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10}.Normalize()
	assert.Equal(t, 20, f.Offset())
}

package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorIdentity(t *testing.T) {
	wrapped := fmt.Errorf("loading product: %w", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrAlreadyExists))
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrInsufficientStock))
	assert.True(t, IsDomainError(fmt.Errorf("reserve: %w", ErrInsufficientStock)))
	assert.False(t, IsDomainError(errors.New("plain error")))
	assert.False(t, IsDomainError(nil))
}

func TestNewDomainError(t *testing.T) {
	err := NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	assert.Equal(t, "INVALID_QUANTITY", err.Code)
	assert.Contains(t, err.Error(), "Quantity must be positive")
}

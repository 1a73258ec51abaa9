package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidationError_Is(t *testing.T) {
	err := fmt.Errorf("inspect: %w", NewValidationError("session_id", "is required"))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "inspect: session_id: is required", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "session_id", ve.Field)
}

func TestStoreUnavailableError_KeepsCause(t *testing.T) {
	err := NewStoreUnavailableError("save decision", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	again := NewStoreUnavailableError("outer", err)
	assert.Same(t, err, again)
	assert.Nil(t, NewStoreUnavailableError("noop", nil))
}

func TestPolicyConflictError(t *testing.T) {
	err := NewPolicyConflictError("alert", "escalated_emergency", "claim")
	assert.True(t, errors.Is(err, ErrPolicyConflict))
	assert.Equal(t, "cannot claim alert in status escalated_emergency", err.Error())
}

func TestNotFoundError(t *testing.T) {
	id := uuid.New()
	err := NewNotFoundError("crisis alert", id)
	assert.True(t, IsNotFoundError(err))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsNotFoundError(errors.New("other")))
	assert.Contains(t, err.Error(), id.String())
}

func TestDictionaryLoadError(t *testing.T) {
	err := NewDictionaryLoadError("no active entries", "2 invalid regex")
	assert.True(t, errors.Is(err, ErrDictionaryLoadFailure))
	assert.Equal(t, "dictionary load failed: no active entries; 2 invalid regex", err.Error())
}

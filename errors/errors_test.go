package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrapPreservesKind(t *testing.T) {
	wrapped := Wrap(ErrGeneration, "clang rejected miniaudio.h")

	assert.Contains(t, wrapped.Error(), "clang rejected miniaudio.h")
	assert.True(t, Is(wrapped, ErrGeneration))
	assert.False(t, Is(wrapped, ErrVerification))
}

func TestGenerationError(t *testing.T) {
	err := NewGenerationError("unresolvable header %q", "ma_device.h")

	assert.True(t, IsGenerationError(err))
	assert.False(t, IsVerificationError(err))
	assert.Contains(t, err.Error(), "ma_device.h")
}

func TestVerificationError(t *testing.T) {
	err := NewVerificationError("%d tests failed", 3)

	assert.True(t, IsVerificationError(err))
	assert.False(t, IsGenerationError(err))

	// Wrapping with more context keeps the kind
	wrapped := Wrap(err, "windows session")
	assert.True(t, IsVerificationError(wrapped))
}

func TestIntegrationConflictError(t *testing.T) {
	err := Wrapf(ErrIntegrationConflict, "push rejected after %d attempts", 5)

	assert.True(t, IsIntegrationConflictError(err))
	assert.False(t, IsContentConflictError(err))
}

func TestContentConflictError(t *testing.T) {
	err := Wrap(ErrContentConflict, "bindings/linux/miniaudio.go touched by two commits")

	assert.True(t, IsContentConflictError(err))
	assert.False(t, IsIntegrationConflictError(err))
}

func TestKindChecksOnNil(t *testing.T) {
	assert.False(t, IsGenerationError(nil))
	assert.False(t, IsVerificationError(nil))
	assert.False(t, IsIntegrationConflictError(nil))
	assert.False(t, IsContentConflictError(nil))
}

package error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	transient := NewTransientPublishError("records", errors.New("broker unavailable"))
	fatal := NewFatalPublishError("records", errors.New("message too large"))

	assert.True(t, IsTransient(transient))
	assert.True(t, IsTransient(fmt.Errorf("send: %w", transient)))
	assert.False(t, IsTransient(fatal))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))

	assert.ErrorIs(t, transient, ErrPublishTransient)
	assert.ErrorIs(t, fatal, ErrPublishFatal)
}

func TestConfigurationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("building validator: %w", NewConfigurationError("batch_size", "must be positive"))

	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "batch_size: must be positive")
}

func TestFileAccessErrorUnwraps(t *testing.T) {
	err := NewFileAccessError("uploads/a.csv", ErrObjectNotFound)

	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "file access error for uploads/a.csv: [FILE_2001] Source object not found", err.Error())
}

func TestCustomErrorIsComparesCode(t *testing.T) {
	withDetails := NewCustomError(404, ErrObjectNotFound.Code, "bucket/key missing", "detail")
	assert.ErrorIs(t, withDetails, ErrObjectNotFound)
	assert.NotErrorIs(t, withDetails, ErrObjectTooLarge)
}

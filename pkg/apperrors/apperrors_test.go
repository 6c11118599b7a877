package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeEligibility, "not eligible")
	assert.Equal(t, CodeEligibility, CodeOf(err))

	wrapped := fmt.Errorf("submit donation: %w", err)
	assert.Equal(t, CodeEligibility, CodeOf(wrapped))

	assert.Equal(t, CodePersistence, CodeOf(errors.New("boom")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodePersistence, "storage failure")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage failure", MessageOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMessageOfHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("pq: deadlock detected")))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeConsistency, "Insufficient stock"))
	assert.True(t, Is(err, CodeConsistency))
	assert.False(t, Is(err, CodeValidation))
}

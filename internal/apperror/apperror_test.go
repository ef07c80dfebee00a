package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage_WrapsAndIsRetryable(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Storage("save entry", cause)

	assert.Equal(t, KindStorage, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save entry")
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestKindOf_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("cli: %w", Validation("save entry", "body must not be empty"))

	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsRetryable(err))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindStorage))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Busy("find patterns"))

	assert.True(t, errors.Is(err, &Error{Kind: KindBusy}))
	assert.False(t, errors.Is(err, &Error{Kind: KindStorage}))
}

func TestServiceUnavailable_RetryableOnlyWithCause(t *testing.T) {
	assert.False(t, IsRetryable(ServiceUnavailable("interpret", nil)))
	assert.True(t, IsRetryable(ServiceUnavailable("interpret", errors.New("connection refused"))))
}

func TestInsufficientData_Message(t *testing.T) {
	err := InsufficientData("find patterns", 2, 3)
	assert.Contains(t, err.Error(), "at least 3")
	assert.Contains(t, err.Error(), "have 2")
}

package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "habitkit/internal/platform/errors"
)

func TestKindFollowsWrappedSentinels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("start: %w", apperrors.ErrConflict), "conflict"},
		{fmt.Errorf("%w: dial tcp", apperrors.ErrStoreUnavailable), "store_unavailable"},
		{apperrors.ErrUnauthenticated, "unauthenticated"},
		{fmt.Errorf("complete: %w", apperrors.ErrValidationFailed), "validation_failed"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.Kind(tt.err))
	}
}

func TestRetryableOnlyForConflictAndUnavailable(t *testing.T) {
	t.Parallel()
	assert.True(t, apperrors.Retryable(fmt.Errorf("x: %w", apperrors.ErrConflict)))
	assert.True(t, apperrors.Retryable(apperrors.ErrStoreUnavailable))
	assert.False(t, apperrors.Retryable(apperrors.ErrValidationFailed))
	assert.False(t, apperrors.Retryable(errors.New("boom")))
}

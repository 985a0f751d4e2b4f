package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "test"}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return apiError("Throttling")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsBudget(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		attempts++
		return apiError("ServiceUnavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoAccessDeniedNotRetried(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		attempts++
		return apiError("AccessDenied")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "access denied fails immediately")
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, fastPolicy(), func() error {
		return apiError("Throttling")
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCancelled))
}

func TestDoWithResult(t *testing.T) {
	value, err := DoWithResult(context.Background(), fastPolicy(), func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"throttling", apiError("Throttling"), true},
		{"request limit", apiError("RequestLimitExceeded"), true},
		{"slow down", apiError("SlowDown"), true},
		{"internal error", apiError("InternalError"), true},
		{"access denied", apiError("AccessDenied"), false},
		{"validation", apiError("ValidationError"), false},
		{"app throttled", apperrors.New(apperrors.KindThrottled, "x"), true},
		{"app permission", apperrors.New(apperrors.KindPermissionDenied, "x"), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsAccessDenied(t *testing.T) {
	assert.True(t, IsAccessDenied(apiError("AccessDenied")))
	assert.True(t, IsAccessDenied(apiError("UnauthorizedOperation")))
	assert.True(t, IsAccessDenied(apperrors.New(apperrors.KindPermissionDenied, "x")))
	assert.False(t, IsAccessDenied(apiError("Throttling")))
}

func TestDelayGrowsAndCaps(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, policy.Delay(0))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 300*time.Millisecond, policy.Delay(2), "delay caps at MaxDelay")
	assert.Equal(t, 300*time.Millisecond, policy.Delay(4))
}

package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"

	apperrors "github.com/habhabhabs/aws-inventag/internal/shared/errors"
)

// Policy is a reusable retry configuration passed to each provider call
// site. Callers never implement retries inline.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// Default returns the retry policy for provider calls: exponential backoff
// with jitter, three attempts, budget per call.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Delay computes the backoff before the given attempt (0-based)
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.Jitter {
		delay += time.Duration(rand.Float64() * float64(delay) * 0.3)
	}
	return delay
}

// Do executes fn with the policy. Permission-denied and not-found errors
// are returned immediately; throttling and transient errors are retried
// until the attempt budget is exhausted.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.KindCancelled, "retry cancelled", ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.KindCancelled, "retry cancelled", ctx.Err())
		case <-time.After(policy.Delay(attempt)):
		}
	}
	return lastErr
}

// DoWithResult executes a function returning a value with retry logic
func DoWithResult[T any](ctx context.Context, policy Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, policy, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// AWS API error codes that indicate throttling or transient failure.
var retryableCodes = map[string]bool{
	"Throttling":                             true,
	"ThrottlingException":                    true,
	"ThrottledException":                     true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"RequestThrottled":                       true,
	"RequestThrottledException":              true,
	"SlowDown":                               true,
	"ServiceUnavailable":                     true,
	"ServiceUnavailableException":            true,
	"InternalError":                          true,
	"InternalFailure":                        true,
	"ProvisionedThroughputExceededException": true,
}

// Codes that mean access is denied; never retried.
var deniedCodes = map[string]bool{
	"AccessDenied":              true,
	"AccessDeniedException":     true,
	"UnauthorizedOperation":     true,
	"UnauthorizedAccess":        true,
	"AuthorizationError":        true,
	"Forbidden":                 true,
	"NotAuthorized":             true,
	"OptInRequired":             true,
	"UnrecognizedClientException": true,
}

// IsRetryable classifies an error as throttled/transient
func IsRetryable(err error) bool {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return retryableCodes[apiErr.ErrorCode()]
	}
	// Network-level errors surface as generic operation errors.
	var opErr *smithy.OperationError
	return errors.As(err, &opErr)
}

// IsAccessDenied classifies an error as a permission failure
func IsAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return deniedCodes[apiErr.ErrorCode()]
	}
	return apperrors.IsKind(err, apperrors.KindPermissionDenied)
}

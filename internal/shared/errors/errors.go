package errors

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// Kind categorizes an inventory error. Kinds drive the propagation policy:
// workers never raise into the orchestrator, they return a result value
// carrying one of these.
type Kind string

const (
	// KindCredential means a session could not be established for an account.
	KindCredential Kind = "credential"
	// KindAccountMismatch means the caller identity disagrees with the
	// configured account id.
	KindAccountMismatch Kind = "account_mismatch"
	// KindPermissionDenied means the provider returned access-denied for a
	// specific call. Never retried.
	KindPermissionDenied Kind = "permission_denied"
	// KindThrottled means the provider returned a retryable rate-limit or
	// transient error.
	KindThrottled Kind = "throttled"
	// KindInvalidPolicy means the policy document failed schema validation.
	// Fatal at load time.
	KindInvalidPolicy Kind = "invalid_policy"
	// KindCorruptSnapshot means a stored snapshot's checksum does not match
	// its content.
	KindCorruptSnapshot Kind = "corrupt_snapshot"
	// KindCancelled means cooperative cancellation due to timeout or interrupt.
	KindCancelled Kind = "cancelled"
	// KindUnexpected is any uncategorized failure inside a worker.
	KindUnexpected Kind = "unexpected"
)

// Error is the domain error type carried across pool boundaries
type Error struct {
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	AccountID string         `json:"account_id,omitempty"`
	Service   string         `json:"service,omitempty"`
	Region    string         `json:"region,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Wrapped   error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation: %s)", e.Operation)
	}
	if e.Wrapped != nil {
		msg += fmt.Sprintf(": %v", e.Wrapped)
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches errors by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the error kind warrants a backoff retry
func (e *Error) Retryable() bool {
	return e.Kind == KindThrottled
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Timestamp: time.Now().UTC()}
}

// Wrap creates an error of the given kind wrapping a cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: cause, Timestamp: time.Now().UTC()}
}

// WithAccount attaches the account id
func (e *Error) WithAccount(accountID string) *Error {
	e.AccountID = accountID
	return e
}

// WithUnit attaches the (service, region) discovery unit
func (e *Error) WithUnit(service, region string) *Error {
	e.Service = service
	e.Region = region
	return e
}

// WithOperation attaches the provider operation name
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithDetail attaches a context detail
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// FromPanic converts a recovered panic value into an unexpected error
// carrying the goroutine stack. Used at pool boundaries, where a worker
// must return a result value instead of unwinding the whole run.
func FromPanic(recovered any) *Error {
	var wrapped error
	if err, ok := recovered.(error); ok {
		wrapped = err
	}
	return &Error{
		Kind:      KindUnexpected,
		Message:   fmt.Sprintf("worker panic: %v", recovered),
		Wrapped:   wrapped,
		Timestamp: time.Now().UTC(),
		Details:   map[string]any{"stack": string(debug.Stack())},
	}
}

// KindOf returns the kind of err, or KindUnexpected for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

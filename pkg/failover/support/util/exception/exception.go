// Package exception provides the error taxonomy for the Seawall orchestrator.
// Every failure surfaced by the engine is classified into one of a small set of
// kinds, which drive retry behavior, credential-cache invalidation, and the
// response-code mapping of the control surface.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies an OrchestrationError.
type Kind string

const (
	// KindValidation indicates a structurally invalid recovery plan (cyclic or
	// empty wave graph). Surfaced at start; no execution is created.
	KindValidation Kind = "VALIDATION"
	// KindInvalidState indicates a lifecycle operation issued against an
	// incompatible execution state. No state change occurs.
	KindInvalidState Kind = "INVALID_STATE"
	// KindSubmission indicates the recovery backend rejected job creation.
	// Recorded on the job record; never retried silently.
	KindSubmission Kind = "SUBMISSION"
	// KindTransient indicates throttling or a network condition. Retried with
	// backoff inside the job poller up to a bounded attempt count.
	KindTransient Kind = "TRANSIENT"
	// KindPermanent indicates auth failure or job-not-found. Surfaced
	// immediately, never retried.
	KindPermanent Kind = "PERMANENT"
	// KindTimeout indicates a job that never reached terminal state within the
	// maximum wait window.
	KindTimeout Kind = "TIMEOUT"
	// KindInternal covers infrastructure failures (persistence, config) that do
	// not map onto the job-level taxonomy.
	KindInternal Kind = "INTERNAL"
)

// OrchestrationError is the error type used throughout the orchestrator.
// It carries the module where the failure occurred, a message, the wrapped
// original error, and its taxonomy kind.
type OrchestrationError struct {
	// Module indicates where the error occurred (e.g. "controller", "poller", "broker").
	Module string
	// Message is a concise description of the failure.
	Message string
	// Kind is the taxonomy classification.
	Kind Kind
	// OriginalErr is the wrapped original error, if any.
	OriginalErr error
	// authFailure marks a permanent error as auth-class, which triggers
	// credential cache invalidation.
	authFailure bool
	// StackTrace is the stack captured at construction time, for post-mortems.
	StackTrace string
}

// New creates a new OrchestrationError of the given kind.
func New(module string, kind Kind, message string, originalErr error) *OrchestrationError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &OrchestrationError{
		Module:      module,
		Message:     message,
		Kind:        kind,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// Newf creates a new OrchestrationError with a formatted message.
func Newf(module string, kind Kind, format string, a ...interface{}) *OrchestrationError {
	return New(module, kind, fmt.Sprintf(format, a...), nil)
}

// NewValidation creates a validation error.
func NewValidation(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindValidation, message, originalErr)
}

// NewInvalidState creates an invalid-state error.
func NewInvalidState(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindInvalidState, message, originalErr)
}

// NewSubmission creates a submission error.
func NewSubmission(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindSubmission, message, originalErr)
}

// NewTransient creates a transient (retryable) error.
func NewTransient(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindTransient, message, originalErr)
}

// NewPermanent creates a permanent (non-retryable) error. authFailure marks it
// as auth-class, which forces credential cache invalidation in the broker.
func NewPermanent(module, message string, originalErr error, authFailure bool) *OrchestrationError {
	e := New(module, KindPermanent, message, originalErr)
	e.authFailure = authFailure
	return e
}

// NewTimeout creates a timeout error.
func NewTimeout(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindTimeout, message, originalErr)
}

// NewInternal creates an internal error.
func NewInternal(module, message string, originalErr error) *OrchestrationError {
	return New(module, KindInternal, message, originalErr)
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *OrchestrationError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether this error may be retried. Only transient-kind
// errors are retryable.
func (e *OrchestrationError) IsRetryable() bool {
	return e.Kind == KindTransient
}

// IsAuthFailure reports whether this is an auth-class permanent error.
func (e *OrchestrationError) IsAuthFailure() bool {
	return e.Kind == KindPermanent && e.authFailure
}

// KindOf returns the Kind of err if it is (or wraps) an OrchestrationError,
// and KindInternal otherwise.
func KindOf(err error) Kind {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindInternal
}

// IsKind reports whether err is (or wraps) an OrchestrationError of the given kind.
func IsKind(err error, kind Kind) bool {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsInvalidState reports whether err is an invalid-state error.
func IsInvalidState(err error) bool { return IsKind(err, KindInvalidState) }

// IsSubmission reports whether err is a submission error.
func IsSubmission(err error) bool { return IsKind(err, KindSubmission) }

// IsTransient reports whether err is a transient error.
func IsTransient(err error) bool { return IsKind(err, KindTransient) }

// IsPermanent reports whether err is a permanent error.
func IsPermanent(err error) bool { return IsKind(err, KindPermanent) }

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool { return IsKind(err, KindTimeout) }

// IsAuthFailure reports whether err is an auth-class permanent error.
func IsAuthFailure(err error) bool {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.IsAuthFailure()
	}
	return false
}

// ExtractErrorMessage extracts a clean message string from an error. For
// OrchestrationError it returns the Message field; otherwise the standard
// Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return err.Error()
}

package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an external-collaborator failure for observability and
// retry semantics. Transient failures may succeed on the next scheduled
// run; permanent ones will not change without external action (revoked
// token, unresolvable location).
type Kind string

const (
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

// ExternalError wraps a failure from the forecast generator, notification
// sender, or user directory with its retry classification.
type ExternalError struct {
	Kind Kind
	Err  error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable external failure.
func Transient(err error) error {
	return &ExternalError{Kind: KindTransient, Err: err}
}

// Transientf is Transient over a formatted message.
func Transientf(format string, args ...any) error {
	return Transient(fmt.Errorf(format, args...))
}

// Permanent wraps err as a non-retryable external failure.
func Permanent(err error) error {
	return &ExternalError{Kind: KindPermanent, Err: err}
}

// Permanentf is Permanent over a formatted message.
func Permanentf(format string, args ...any) error {
	return Permanent(fmt.Errorf(format, args...))
}

// KindOf extracts the classification from err. Unclassified errors are
// treated as transient so they stay eligible for the next scheduled run.
func KindOf(err error) Kind {
	var ee *ExternalError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindTransient
}

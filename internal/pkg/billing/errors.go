package billing

import (
	"errors"
	"fmt"
)

// ErrorKind classifies billing failures for transport mapping and retry
// decisions.
type ErrorKind string

const (
	// KindAuth covers bad or missing webhook signatures and disallowed
	// sources. Never retried.
	KindAuth ErrorKind = "auth"
	// KindDuplicate marks a webhook id that was already applied. Idempotent
	// from the caller's point of view.
	KindDuplicate ErrorKind = "duplicate"
	// KindValidation covers missing snapshot fields and unknown user/plan
	// references.
	KindValidation ErrorKind = "validation"
	// KindState marks an action attempted on a subscription in an
	// ineligible state.
	KindState ErrorKind = "state"
	// KindProvider marks an upstream provider failure; retryable.
	KindProvider ErrorKind = "provider"
)

// Error is the structured failure value surfaced by the billing core:
// a machine-readable kind, the offending field where known, and a message.
type Error struct {
	Kind  ErrorKind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("billing: %s (%s: %s)", e.Msg, e.Kind, e.Field)
	}
	return fmt.Sprintf("billing: %s (%s)", e.Msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Msg: msg}
}

func wrapProviderErr(msg string, err error) *Error {
	return &Error{Kind: KindProvider, Msg: msg, Err: err}
}

// KindOf extracts the error kind, or "" for non-billing errors.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err carries the given billing error kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

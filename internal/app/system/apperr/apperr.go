// Package apperr defines the tagged errors handlers switch on to pick an
// HTTP status. Services return a Kind; the boundary never inspects message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindRule:
		return "business_rule"
	}
	return "internal"
}

// Error is a classified error. Message is safe to show to the caller; Err
// is the wrapped cause and is never rendered.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Expected reports whether the error is client-caused and should not be
// sent to the error tracker.
func (e *Error) Expected() bool { return e.Kind != KindInternal }

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string) *Error   { return New(KindValidation, "validation_error", msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, "unauthorized", msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, "forbidden", msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, "not_found", msg) }
func Conflict(msg string) *Error     { return New(KindConflict, "conflict", msg) }
func RateLimited(msg string) *Error  { return New(KindRateLimited, "rate_limited", msg) }

// Rule is a business-rule violation (400). code names the rule, e.g. "last_admin".
func Rule(code, msg string) *Error { return New(KindRule, code, msg) }

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "Internal server error", Err: err}
}

// Wrap attaches a cause to a classified error.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

package errs

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind classifies an error for the transport layer.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
	KindInvalid
	// KindUnavailable marks infrastructure faults (storage, cache, upstream API).
	// Callers may retry these, unlike Conflict or NotFound.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

// Error is the application error carried from services to handlers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a sentinel-style domain error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Storage wraps a persistence failure. op names the failed operation.
func Storage(op string, err error) error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    "STORAGE_UNAVAILABLE",
		Message: op,
		Err:     err,
	}
}

// Upstream wraps a failure of an external dependency such as the catalog API.
func Upstream(op string, err error) error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: op,
		Err:     err,
	}
}

// Invalid builds a KindInvalid error with a plain message.
func Invalid(message string) error {
	return &Error{Kind: KindInvalid, Code: "INVALID_REQUEST", Message: message}
}

// FromValidation converts ozzo-validation output into a KindInvalid error.
// Field errors end up in Details keyed by field name.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]string, len(fieldErrs))
		for field, fe := range fieldErrs {
			details[field] = fe.Error()
		}
		return &Error{
			Kind:    KindInvalid,
			Code:    "VALIDATION_FAILED",
			Message: "validation failed",
			Details: details,
			Err:     err,
		}
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}

	return &Error{Kind: KindInvalid, Code: "VALIDATION_FAILED", Message: err.Error(), Err: err}
}

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}

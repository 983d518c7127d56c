// Package common defines the error taxonomy and small helpers shared by the
// gallerist server packages. Callers should match sentinels with errors.Is
// and error kinds with KindOf.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Object-store errors. Returned by every ObjectStore implementation when
	// the addressed key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// Identity errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// Kind classifies a failure so callers can switch on it instead of
// inspecting messages.
type Kind uint8

const (
	KindInternal Kind = iota
	// KindValidation is malformed input. Nothing was mutated.
	KindValidation
	// KindSourceMissing is a promotion whose staged object is gone.
	KindSourceMissing
	// KindStoreTransient is an object-store or database failure. The whole
	// logical operation may be retried.
	KindStoreTransient
	KindForbidden
	KindUnauthorized
	KindNotFound
	// KindPartialCleanup is a best-effort cleanup failure after a commit.
	// Logged only.
	KindPartialCleanup
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindSourceMissing:
		return "SOURCE_MISSING"
	case KindStoreTransient:
		return "STORE_TRANSIENT"
	case KindForbidden:
		return "FORBIDDEN"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindPartialCleanup:
		return "PARTIAL_CLEANUP_FAILURE"
	default:
		return "INTERNAL"
	}
}

// Error is the tagged error used across service boundaries.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "assets.Promote".
	Op string
	// Field is set for validation errors that map to a single input field.
	Field string
	// Msg is a caller-facing message. Empty means Kind.String().
	Msg string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(strings.ToLower(e.Kind.String()))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation builds a field-level validation error.
func Validation(op, field, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Msg: msg}
}

// Transient wraps an infrastructure failure. A nil err yields nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return E(KindStoreTransient, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain. Bare
// ErrorNotFound maps to KindNotFound; anything else is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrorNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// IsKind reports whether err is of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

package types

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure surfaced by an applier, a query or an RPC.
type Kind string

const (
	// KindNotFound indicates a referenced record, file or zone is absent.
	KindNotFound Kind = "not_found"
	// KindInvalidZone indicates the requested timezone is not present on disk.
	KindInvalidZone Kind = "invalid_zone"
	// KindParseError indicates a malformed input literal.
	KindParseError Kind = "parse_error"
	// KindInvalidValue indicates a value that would corrupt the target system file.
	KindInvalidValue Kind = "invalid_value"
	// KindIOFailure indicates a file or service-manager operation failed.
	KindIOFailure Kind = "io_failure"
	// KindPartialApply indicates a transaction stopped after some events were applied.
	KindPartialApply Kind = "partial_apply_failure"
	// KindAborted indicates the configuration system aborted the transaction.
	KindAborted Kind = "aborted"
)

// Sentinels for errors.Is comparisons. Only the Kind is compared.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidZone  = &Error{Kind: KindInvalidZone}
	ErrParse        = &Error{Kind: KindParseError}
	ErrInvalidValue = &Error{Kind: KindInvalidValue}
	ErrIO           = &Error{Kind: KindIOFailure}
	ErrPartialApply = &Error{Kind: KindPartialApply}
	ErrAborted      = &Error{Kind: KindAborted}
)

// Error wraps an underlying error with its Kind and the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the underlying error to errors.Is/As
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same Kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a new Kind-tagged error
func NewError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost tagged error in the chain.
// Untagged errors are reported as io failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIOFailure
}

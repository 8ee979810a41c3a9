// Package errors defines the closed set of error kinds used across the CLI
// and their mapping to process exit codes.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the CLI distinguishes.
type Kind int

const (
	KindGeneric Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindConnectivity
	KindStorage
)

// Exit codes per kind, stable for scripting.
const (
	ExitOK           = 0
	ExitGeneric      = 1
	ExitValidation   = 2
	ExitNotFound     = 3
	ExitConflict     = 4
	ExitConnectivity = 5
	ExitStorage      = 6
)

// Error carries a kind, an operator-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
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

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Validationf reports invalid input (malformed JSON, schema violations).
func Validationf(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

// NotFoundf reports a missing resource or unknown identity.
func NotFoundf(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

// Conflictf reports a duplicate identifier or already-existing resource.
func Conflictf(format string, args ...interface{}) *Error {
	return newError(KindConflict, nil, format, args...)
}

// Connectivity wraps a transport-level failure reaching the API.
func Connectivity(err error, format string, args ...interface{}) *Error {
	return newError(KindConnectivity, err, format, args...)
}

// Storage wraps a failed bucket-store transaction.
func Storage(err error, format string, args ...interface{}) *Error {
	return newError(KindStorage, err, format, args...)
}

// Genericf reports a remote or service failure with no finer classification.
func Genericf(format string, args ...interface{}) *Error {
	return newError(KindGeneric, nil, format, args...)
}

// Wrapf prefixes err with operator-facing context, preserving its kind.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return newError(KindOf(err), err, format, args...)
}

// KindOf returns the kind of err, or KindGeneric for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps an error to the process exit code for the cmd boundary.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindValidation:
		return ExitValidation
	case KindNotFound:
		return ExitNotFound
	case KindConflict:
		return ExitConflict
	case KindConnectivity:
		return ExitConnectivity
	case KindStorage:
		return ExitStorage
	default:
		return ExitGeneric
	}
}

package core

import (
	"errors"
	"fmt"
)

// Kind categorises an error for the transport layer. Kinds are sentinels:
// match them with errors.Is through the Error wrapper.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new error kind.
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrDecode means the upload is missing or cannot be parsed as a spreadsheet.
	ErrDecode = NewKind("decode error")
	// ErrEmptyBatch means no row of the upload passed validation.
	ErrEmptyBatch = NewKind("no valid records found in file")
	// ErrStorage means the persistence gateway failed.
	ErrStorage = NewKind("storage error")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = NewKind("record not found")
	// ErrValidation means a single-record payload failed validation.
	ErrValidation = NewKind("validation failed")
	// ErrTooManyUploads means the upload admission limit is reached.
	ErrTooManyUploads = NewKind("too many uploads in progress")
	// ErrAborted means the caller cancelled or timed out before the work finished.
	ErrAborted = NewKind("request aborted")
)

// Error carries a Kind, a message and an optional cause.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// Errorf builds an Error of kind k with a formatted message.
func Errorf(k Kind, format string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of kind k around cause err.
func Wrap(k Kind, err error, format string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

// Is matches either the kind or anything in the wrapped chain.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	return e.err != nil && errors.Is(e.err, target)
}

// Kind returns the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message without the wrapped cause.
func (e *Error) Message() string {
	if e.msg != "" {
		return e.msg
	}
	if e.kind != nil {
		return e.kind.Error()
	}
	return ""
}

// KindOf returns the kind of the first *Error in err's chain, or nil.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return nil
}

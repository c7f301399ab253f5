// Package errs defines the error kinds used to tell store, transport and validation failures apart.
package errs

import (
	"errors"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnknown    Kind = ""
	KindStore      Kind = "store"
	KindTransport  Kind = "transport"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
)

// Error carries a kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E wraps err with kind and op. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New creates an error of the given kind from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code reports the upper-case kind for log err_code fields.
func (e *Error) Code() string {
	kind := KindOf(e)
	if kind == KindUnknown {
		return "UNKNOWN"
	}
	return strings.ToUpper(string(kind))
}

// KindOf returns the innermost explicit kind found in the chain.
func KindOf(err error) Kind {
	kind := KindUnknown
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Kind != KindUnknown {
			kind = e.Kind
		}
		err = e.Err
	}
	return kind
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Package edrerr classifies failures of the coverage-query engine so the HTTP
// boundary can tell a missing resource from bad input from a server fault.
package edrerr

import (
	"errors"
	"fmt"
)

type Code int

const (
	Internal Code = iota
	NotFound
	InvalidInput
)

func (c Code) String() string {
	switch c {
	case NotFound:
		return "NotFound"
	case InvalidInput:
		return "InvalidParameterValue"
	default:
		return "InternalError"
	}
}

type Error struct {
	code  Code
	desc  string
	cause error
}

func NewNotFound(desc string, a ...any) error {
	return &Error{code: NotFound, desc: fmt.Sprintf(desc, a...)}
}

func NewInvalidInput(desc string, a ...any) error {
	return &Error{code: InvalidInput, desc: fmt.Sprintf(desc, a...)}
}

func NewInternal(desc string, a ...any) error {
	return &Error{code: Internal, desc: fmt.Sprintf(desc, a...)}
}

// Wrap attaches a code to an existing error. A nil err yields nil.
func Wrap(code Code, err error, desc string, a ...any) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, desc: fmt.Sprintf(desc, a...), cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.code.String() + ": " + e.desc + ": " + e.cause.Error()
	}
	return e.code.String() + ": " + e.desc
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

func (e *Error) Desc() string { return e.desc }

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.code == code
}

// CodeOf returns the code of err, defaulting to Internal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return Internal
}

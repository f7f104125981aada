package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a store failure so callers can map it to a response
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindValidation  ErrorKind = "validation"
	KindUnavailable ErrorKind = "unavailable"
)

// Sentinel errors, one per kind. Use errors.Is against these.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrValidation  = errors.New("invalid request")
	ErrUnavailable = errors.New("backend unavailable")
)

// Error is the only error type returned across the store boundary
type Error struct {
	Kind  ErrorKind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Table != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Table, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the sentinel of its kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// NewError builds an *Error with a formatted message
func NewError(kind ErrorKind, op, table, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Table: table, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" if err does not come from the store
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindProcessing          ErrorKind = "processing"
	KindAudit               ErrorKind = "audit"
	KindConflict            ErrorKind = "conflict"
	KindBlockedBySimulation ErrorKind = "blocked_by_simulation"
)

// Error is a categorized failure. Two errors match under errors.Is when their
// kinds match, so callers can test against the sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	ErrValidation          = NewError(KindValidation, "invalid request", nil)
	ErrNotFound            = NewError(KindNotFound, "not found", nil)
	ErrProcessing          = NewError(KindProcessing, "processing failed", nil)
	ErrAudit               = NewError(KindAudit, "audit write failed", nil)
	ErrConflict            = NewError(KindConflict, "concurrent modification", nil)
	ErrBlockedBySimulation = NewError(KindBlockedBySimulation, "modification blocked: simulation in progress", nil)
)

func Validation(message string) *Error { return NewError(KindValidation, message, nil) }

func NotFound(message string, err error) *Error { return NewError(KindNotFound, message, err) }

func Processing(message string, err error) *Error { return NewError(KindProcessing, message, err) }

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

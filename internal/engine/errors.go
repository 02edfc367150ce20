package engine

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindNotFound
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	default:
		return "internal"
	}
}

// Error is returned by every engine operation that fails. Whatever the
// kind, the unit of work that produced it has been rolled back.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func AuthError(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func ConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func StateError(msg string) *Error {
	return &Error{Kind: KindState, Message: msg}
}

func InternalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err, or KindInternal for errors that did not
// come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func asEngineError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalError(err)
}

// Package apperr classifies failures of the marketplace core so that the
// transport layer can map them without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of an Error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAuth
	KindForbidden
	KindValidation
	KindConflict
	KindNotFound
	KindStore
	KindIndexSync
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	case KindIndexSync:
		return "index_sync"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the operation that failed, a caller-safe message and
// the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound) works
// regardless of Op and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrStore      = &Error{Kind: KindStore}
	ErrIndexSync  = &Error{Kind: KindIndexSync}
)

func Auth(op, msg string) error       { return &Error{Kind: KindAuth, Op: op, Msg: msg} }
func Forbidden(op, msg string) error  { return &Error{Kind: KindForbidden, Op: op, Msg: msg} }
func Validation(op, msg string) error { return &Error{Kind: KindValidation, Op: op, Msg: msg} }
func Conflict(op, msg string) error   { return &Error{Kind: KindConflict, Op: op, Msg: msg} }
func NotFound(op, msg string) error   { return &Error{Kind: KindNotFound, Op: op, Msg: msg} }

// Store wraps a primary-store failure. An error that is already classified is
// returned unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStore, Op: op, Msg: "store failure", Err: err}
}

// IndexSync wraps a failed mirror call against the search index.
func IndexSync(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIndexSync, Op: op, Msg: "index sync failed", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Message returns the caller-safe message of the first *Error in err's chain.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return ""
}

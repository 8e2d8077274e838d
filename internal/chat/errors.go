package chat

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. The HTTP layer maps every kind to a status.
type Kind int

// Failure kinds produced by the chat pipeline and the admin operations.
const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindConfigNotFound
	KindSessionNotFound
	KindSessionBusy
	KindEmptyCompletion
	KindCompletionUnavailable
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindConfigNotFound:
		return "config_not_found"
	case KindSessionNotFound:
		return "session_not_found"
	case KindSessionBusy:
		return "session_busy"
	case KindEmptyCompletion:
		return "empty_completion"
	case KindCompletionUnavailable:
		return "completion_unavailable"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a tagged pipeline error. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Sentinels usable with errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrConfigNotFound        = &Error{Kind: KindConfigNotFound}
	ErrSessionNotFound       = &Error{Kind: KindSessionNotFound}
	ErrSessionBusy           = &Error{Kind: KindSessionBusy}
	ErrEmptyCompletion       = &Error{Kind: KindEmptyCompletion}
	ErrCompletionUnavailable = &Error{Kind: KindCompletionUnavailable}
	ErrPersistence           = &Error{Kind: KindPersistence}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message of err without wrapped causes.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	}
	return "internal error"
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func invalidRequest(op, msg string) *Error {
	return newError(KindInvalidRequest, op, msg, nil)
}

func persistence(op string, err error) *Error {
	return newError(KindPersistence, op, "failed to persist chat data", err)
}

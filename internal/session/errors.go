package session

import (
	"errors"
	"fmt"
)

// ErrorCode categorises session failures.
type ErrorCode string

const (
	// ErrCodeAuthorization indicates the actor is not allowed to perform the
	// operation (not the session owner, or lacking community capability).
	ErrCodeAuthorization ErrorCode = "AUTHORIZATION_FAILURE"

	// ErrCodeCapacityExceeded indicates a select on a full selection.
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"

	// ErrCodeIncompleteSelection indicates a confirm with fewer than CodeLength tokens.
	ErrCodeIncompleteSelection ErrorCode = "INCOMPLETE_SELECTION"

	// ErrCodeSessionClosed indicates an operation on a terminated or unknown session.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"
)

// Error is a user-input or lifecycle failure. None of these change state.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Handle identifies the affected session, if any.
	Handle string

	// Action names the attempted operation (select, clear, confirm, cancel, reset, begin).
	Action string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s: %s (session=%s)", e.Code, e.Message, e.Handle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not a session error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ActionOf returns the action carried by err, or "".
func ActionOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Action
	}
	return ""
}

// IsAuthorizationError reports whether err is an authorization failure.
func IsAuthorizationError(err error) bool {
	return CodeOf(err) == ErrCodeAuthorization
}

// IsCapacityError reports whether err is a capacity failure.
func IsCapacityError(err error) bool {
	return CodeOf(err) == ErrCodeCapacityExceeded
}

// IsIncompleteError reports whether err is an incomplete-selection failure.
func IsIncompleteError(err error) bool {
	return CodeOf(err) == ErrCodeIncompleteSelection
}

// IsClosedError reports whether err is a closed-session failure.
func IsClosedError(err error) bool {
	return CodeOf(err) == ErrCodeSessionClosed
}

// NewAuthorizationError creates an Error for an actor lacking permission.
func NewAuthorizationError(handle, action, actorID string) *Error {
	return &Error{
		Code:    ErrCodeAuthorization,
		Message: fmt.Sprintf("actor %s may not %s", actorID, action),
		Handle:  handle,
		Action:  action,
	}
}

// NewClosedError creates an Error for an operation on a closed session.
func NewClosedError(handle, action string) *Error {
	return &Error{
		Code:    ErrCodeSessionClosed,
		Message: "session is closed",
		Handle:  handle,
		Action:  action,
	}
}

func newCapacityError(handle string, limit int) *Error {
	return &Error{
		Code:    ErrCodeCapacityExceeded,
		Message: fmt.Sprintf("selection already has %d tokens", limit),
		Handle:  handle,
		Action:  ActionSelect,
	}
}

func newIncompleteError(handle string, have, need int) *Error {
	return &Error{
		Code:    ErrCodeIncompleteSelection,
		Message: fmt.Sprintf("selection has %d of %d tokens", have, need),
		Handle:  handle,
		Action:  ActionConfirm,
	}
}

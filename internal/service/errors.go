package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is; the concrete *Error carries the IDs
// involved so the boundary can build an actionable message.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrOptionMismatch = errors.New("option does not belong to question")
	ErrPollClosed     = errors.New("poll is closed")
	ErrDuplicateVote  = errors.New("already voted on this question")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
)

// Authentication errors.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Error is a typed failure from the voting core.
type Error struct {
	Kind       error
	PollID     string
	QuestionID string
	OptionID   string
	Field      string
	Message    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, kv := range [][2]string{
		{"poll", e.PollID},
		{"question", e.QuestionID},
		{"option", e.OptionID},
		{"field", e.Field},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, " %s=%s", kv[0], kv[1])
		}
	}
	return b.String()
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(what, id string) *Error {
	e := &Error{Kind: ErrNotFound, Message: what + " not found"}
	switch what {
	case "poll":
		e.PollID = id
	case "question":
		e.QuestionID = id
	case "option":
		e.OptionID = id
	}
	return e
}

func forbidden(pollID, action string) *Error {
	return &Error{Kind: ErrForbidden, PollID: pollID, Message: "not allowed to " + action + " this poll"}
}

func invalid(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

package repository

import "errors"

// Store errors shared by every storage backend.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPollNotFound     = errors.New("poll not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrUsernameExists   = errors.New("username already exists")
	ErrEmailExists      = errors.New("email already exists")
	ErrInvalidCursor    = errors.New("invalid pagination cursor")

	// ErrQuestionHasVotes rejects a choice mode change on a question that
	// already has votes.
	ErrQuestionHasVotes = errors.New("question already has votes")

	// ErrConflict reports a vote rejected by the single-choice uniqueness constraint.
	ErrConflict = errors.New("vote conflicts with an existing vote")
)

// Constraint names referenced by the unique-violation mapping.
const (
	ConstraintUsername     = "users_username_key"
	ConstraintEmail        = "users_email_key"
	ConstraintSingleChoice = "uq_votes_single_choice"
)

// Package model defines domain entities for the application.
package model

import "time"

// PollStatus is the observable lifecycle state of a poll.
// Only the closed flag is stored; expiry is computed.
type PollStatus string

const (
	PollStatusOpen    PollStatus = "open"
	PollStatusClosed  PollStatus = "closed"
	PollStatusExpired PollStatus = "expired"
)

// ChoiceMode controls how many votes a user may cast on a question.
type ChoiceMode string

const (
	ChoiceSingle   ChoiceMode = "SINGLE"
	ChoiceMultiple ChoiceMode = "MULTIPLE"
)

// IsValid checks if the choice mode is one of the known modes.
func (m ChoiceMode) IsValid() bool {
	return m == ChoiceSingle || m == ChoiceMultiple
}

// Poll is a set of questions owned by a single user.
type Poll struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	Public      bool       `json:"is_public"`
	Closed      bool       `json:"is_closed"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpired reports whether the expiry timestamp has passed at now.
// A poll expiring exactly at now is still open.
func (p *Poll) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// IsOpen reports whether the poll accepts votes at now.
func (p *Poll) IsOpen(now time.Time) bool {
	return !p.Closed && !p.IsExpired(now)
}

// Status computes the lifecycle state at now. An explicit close wins over expiry.
func (p *Poll) Status(now time.Time) PollStatus {
	switch {
	case p.Closed:
		return PollStatusClosed
	case p.IsExpired(now):
		return PollStatusExpired
	default:
		return PollStatusOpen
	}
}

// Question belongs to exactly one poll.
type Question struct {
	ID         string     `json:"id"`
	PollID     string     `json:"poll_id"`
	Text       string     `json:"text"`
	ChoiceMode ChoiceMode `json:"choice_mode"`
	CreatedAt  time.Time  `json:"created_at"`
	Options    []*Option  `json:"options,omitempty"`
}

// Option belongs to exactly one question.
type Option struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Vote records one user's choice of one option.
// QuestionID is denormalized from the option so storage can enforce
// one vote per (user, question) on single-choice questions.
type Vote struct {
	ID         string    `json:"id"`
	OptionID   string    `json:"option_id"`
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

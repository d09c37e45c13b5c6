// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/tallyhub/tallyhub/internal/model"
)

// ErrorResponse represents an API error. The entity IDs are set when the
// failure concerns a specific poll, question or option.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Field      string `json:"field,omitempty"`
	PollID     string `json:"poll_id,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/v1/auth/login. Login accepts
// either a username or an email address.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Superuser bool      `json:"is_superuser"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse carries a user and a fresh token pair.
type SessionResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	TokenType        string       `json:"token_type"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
}

// CreatePollRequest is the body of POST /api/v1/polls.
type CreatePollRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// UpdatePollRequest is the body of PATCH /api/v1/polls/{id}.
// ClearExpiry removes the expiry and takes precedence over ExpiresAt.
type UpdatePollRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsPublic    *bool      `json:"is_public,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// PollResponse represents a poll in API responses.
type PollResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	IsPublic    bool       `json:"is_public"`
	IsClosed    bool       `json:"is_closed"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PollListResponse represents a paginated list of polls.
type PollListResponse struct {
	Data       []PollResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// ClosePollResponse is returned by POST /api/v1/polls/{id}/close.
type ClosePollResponse struct {
	Message       string       `json:"message"`
	AlreadyClosed bool         `json:"already_closed"`
	Poll          PollResponse `json:"poll"`
}

// CreateQuestionRequest is the body of POST /api/v1/polls/{id}/questions.
type CreateQuestionRequest struct {
	Text       string   `json:"text"`
	ChoiceMode string   `json:"choice_mode"`
	Options    []string `json:"options"`
}

// OptionResponse represents an option in API responses.
type OptionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionResponse represents a question and its options.
type QuestionResponse struct {
	ID         string           `json:"id"`
	PollID     string           `json:"poll_id"`
	Text       string           `json:"text"`
	ChoiceMode string           `json:"choice_mode"`
	Options    []OptionResponse `json:"options"`
	CreatedAt  time.Time        `json:"created_at"`
}

// QuestionListResponse wraps the questions of a poll.
type QuestionListResponse struct {
	Data []QuestionResponse `json:"data"`
}

// VoteRequest is the body of POST /api/v1/polls/{id}/questions/{qid}/vote.
type VoteRequest struct {
	OptionID string `json:"option_id"`
}

// VoteResponse represents an accepted vote.
type VoteResponse struct {
	ID         string    `json:"id"`
	PollID     string    `json:"poll_id"`
	QuestionID string    `json:"question_id"`
	OptionID   string    `json:"option_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Superuser: user.Superuser,
		CreatedAt: user.CreatedAt,
	}
}

// UserListResponse is a page of accounts.
type UserListResponse struct {
	Data       []UserResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// ToUserListResponse converts a page of users. Emails are kept only where
// showEmail allows.
func ToUserListResponse(users []*model.User, nextCursor string, hasMore bool, showEmail func(*model.User) bool) *UserListResponse {
	data := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp := ToUserResponse(u)
		if !showEmail(u) {
			resp.Email = ""
		}
		data = append(data, resp)
	}
	return &UserListResponse{
		Data: data,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}

// UpdateQuestionRequest is the body of PATCH /api/v1/polls/{id}/questions/{qid}.
type UpdateQuestionRequest struct {
	Text       *string `json:"text,omitempty"`
	ChoiceMode *string `json:"choice_mode,omitempty"`
}

// ToPollResponse converts a Poll model to PollResponse DTO. Status is
// computed at now.
func ToPollResponse(poll *model.Poll, now time.Time) PollResponse {
	return PollResponse{
		ID:          poll.ID,
		Title:       poll.Title,
		Description: poll.Description,
		OwnerID:     poll.OwnerID,
		IsPublic:    poll.Public,
		IsClosed:    poll.Closed,
		Status:      string(poll.Status(now)),
		ExpiresAt:   poll.ExpiresAt,
		CreatedAt:   poll.CreatedAt,
	}
}

// ToPollListResponse converts a page of polls to PollListResponse DTO.
func ToPollListResponse(polls []*model.Poll, now time.Time, nextCursor string, hasMore bool) *PollListResponse {
	data := make([]PollResponse, len(polls))
	for i, poll := range polls {
		data[i] = ToPollResponse(poll, now)
	}

	return &PollListResponse{
		Data: data,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}

// ToQuestionResponse converts a Question model to QuestionResponse DTO.
func ToQuestionResponse(question *model.Question) QuestionResponse {
	options := make([]OptionResponse, len(question.Options))
	for i, opt := range question.Options {
		options[i] = OptionResponse{ID: opt.ID, Text: opt.Text}
	}

	return QuestionResponse{
		ID:         question.ID,
		PollID:     question.PollID,
		Text:       question.Text,
		ChoiceMode: string(question.ChoiceMode),
		Options:    options,
		CreatedAt:  question.CreatedAt,
	}
}

// ToQuestionListResponse converts questions to QuestionListResponse DTO.
func ToQuestionListResponse(questions []*model.Question) *QuestionListResponse {
	data := make([]QuestionResponse, len(questions))
	for i, q := range questions {
		data[i] = ToQuestionResponse(q)
	}
	return &QuestionListResponse{Data: data}
}

// ToVoteResponse converts a Vote model to VoteResponse DTO.
func ToVoteResponse(vote *model.Vote, pollID string) VoteResponse {
	return VoteResponse{
		ID:         vote.ID,
		PollID:     pollID,
		QuestionID: vote.QuestionID,
		OptionID:   vote.OptionID,
		CreatedAt:  vote.CreatedAt,
	}
}

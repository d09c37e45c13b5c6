// Package service implements polling, vote admission and results on top of
// an entity store. Services are stateless; every call receives the principal
// explicitly.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error)
	SetSuperuser(ctx context.Context, id string, superuser bool) error
}

// PollStore persists polls, questions and options.
type PollStore interface {
	CreatePoll(ctx context.Context, poll *model.Poll) error
	GetPoll(ctx context.Context, id string) (*model.Poll, error)
	ListPolls(ctx context.Context, filter repository.PollFilter, cursor string, limit int) ([]*model.Poll, string, error)
	UpdatePoll(ctx context.Context, poll *model.Poll) error
	ClosePoll(ctx context.Context, id string) (bool, error)
	DeletePoll(ctx context.Context, id string) error

	CreateQuestion(ctx context.Context, question *model.Question, options []*model.Option) error
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	ListQuestions(ctx context.Context, pollID string) ([]*model.Question, error)
	UpdateQuestion(ctx context.Context, question *model.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	GetOption(ctx context.Context, id string) (*model.Option, error)
	ListOptions(ctx context.Context, questionIDs []string) ([]*model.Option, error)
}

// VoteStore persists votes and counts them.
type VoteStore interface {
	HasVote(ctx context.Context, userID, questionID string) (bool, error)
	InsertVote(ctx context.Context, vote *model.Vote) error
	CountVotesByPoll(ctx context.Context, pollID string) (map[string]int64, error)
}

// Store is the full entity store. Both the PostgreSQL repository and the
// SQLite store satisfy it.
type Store interface {
	UserStore
	PollStore
	VoteStore
	Ping(ctx context.Context) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// IDFunc generates entity identifiers.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// Options configures the services.
type Options struct {
	Clock Clock
	NewID IDFunc
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
	return o
}

var (
	_ Store = (*repository.Repository)(nil)
)

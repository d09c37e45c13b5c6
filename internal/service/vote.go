package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tallyhub/tallyhub/internal/events"
	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/policy"
	"github.com/tallyhub/tallyhub/internal/repository"
)

// VoteStores is what vote admission reads and writes.
type VoteStores interface {
	PollStore
	VoteStore
}

// VoteService admits votes.
type VoteService struct {
	store     VoteStores
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	opts      Options
}

// NewVoteService creates a new VoteService.
func NewVoteService(store VoteStores, publisher events.Publisher, recorder metrics.Recorder, logger *slog.Logger, opts Options) *VoteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if publisher == nil {
		publisher = events.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteService{
		store:     store,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger.With("component", "service.vote"),
		opts:      opts.withDefaults(),
	}
}

// CastVote resolves the question under pollID, checks the principal may vote
// on the poll and then runs admission.
func (s *VoteService) CastVote(ctx context.Context, principal model.Principal, pollID, questionID, optionID string) (*model.Vote, error) {
	if !principal.Authenticated {
		return nil, ErrUnauthenticated
	}

	question, err := loadQuestion(ctx, s.store, pollID, questionID)
	if err != nil {
		return nil, s.rejected(err, principal, pollID, questionID, optionID)
	}

	poll, err := loadPoll(ctx, s.store, question.PollID)
	if err != nil {
		return nil, s.rejected(err, principal, pollID, questionID, optionID)
	}
	if !policy.CanVote(principal, poll) {
		return nil, s.rejected(forbidden(poll.ID, "vote on"), principal, pollID, questionID, optionID)
	}

	return s.admit(ctx, principal, poll, question, optionID)
}

// Admit runs the admission checks for a vote on question and persists it.
// Checks run in a fixed order and stop at the first failure: the option
// exists, the option belongs to question, the poll is open, and for SINGLE
// questions the principal has not voted yet.
func (s *VoteService) Admit(ctx context.Context, principal model.Principal, question *model.Question, optionID string) (*model.Vote, error) {
	if !principal.Authenticated {
		return nil, ErrUnauthenticated
	}
	if question == nil {
		return nil, notFound("question", "")
	}
	poll, err := loadPoll(ctx, s.store, question.PollID)
	if err != nil {
		return nil, s.rejected(err, principal, question.PollID, question.ID, optionID)
	}
	return s.admit(ctx, principal, poll, question, optionID)
}

func (s *VoteService) admit(ctx context.Context, principal model.Principal, poll *model.Poll, question *model.Question, optionID string) (*model.Vote, error) {
	vote, err := s.admitChecked(ctx, principal, poll, question, optionID)
	if err != nil {
		return nil, s.rejected(err, principal, poll.ID, question.ID, optionID)
	}

	s.metrics.IncVoteAccepted()
	s.logger.Info("vote_cast",
		"poll_id", poll.ID,
		"question_id", question.ID,
		"option_id", vote.OptionID,
		"user_id", principal.UserID,
	)
	s.publisher.PublishAsync(events.Event{
		Type:       events.TypeVoteCast,
		PollID:     poll.ID,
		QuestionID: question.ID,
		OptionID:   vote.OptionID,
		UserID:     principal.UserID,
		OccurredAt: vote.CreatedAt,
	})

	return vote, nil
}

func (s *VoteService) admitChecked(ctx context.Context, principal model.Principal, poll *model.Poll, question *model.Question, optionID string) (*model.Vote, error) {
	// 1. option exists
	option, err := s.resolveOption(ctx, optionID)
	if err != nil {
		return nil, err
	}

	// 2. option belongs to the question being voted on
	if option.QuestionID != question.ID {
		return nil, &Error{
			Kind:       ErrOptionMismatch,
			PollID:     poll.ID,
			QuestionID: question.ID,
			OptionID:   option.ID,
			Message:    "option belongs to a different question",
		}
	}

	// 3. poll open, explicit close and expiry alike
	now := s.opts.Clock.Now()
	if !poll.IsOpen(now) {
		msg := "poll is closed"
		if !poll.Closed {
			msg = "poll has expired"
		}
		return nil, &Error{Kind: ErrPollClosed, PollID: poll.ID, QuestionID: question.ID, Message: msg}
	}

	// 4. one vote per principal on SINGLE questions
	if question.ChoiceMode == model.ChoiceSingle {
		voted, err := s.store.HasVote(ctx, principal.UserID, question.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing vote: %w", err)
		}
		if voted {
			return nil, duplicateVote(poll.ID, question.ID)
		}
	}

	// 5. persist
	vote := &model.Vote{
		ID:         s.opts.NewID(),
		OptionID:   option.ID,
		QuestionID: question.ID,
		UserID:     principal.UserID,
		CreatedAt:  now,
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			// Lost the race against a concurrent vote from the same principal.
			return nil, duplicateVote(poll.ID, question.ID)
		case errors.Is(err, repository.ErrOptionNotFound):
			return nil, notFound("option", option.ID)
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	return vote, nil
}

func (s *VoteService) resolveOption(ctx context.Context, optionID string) (*model.Option, error) {
	if strings.TrimSpace(optionID) == "" {
		return nil, invalid("option_id", "is required")
	}
	option, err := s.store.GetOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, repository.ErrOptionNotFound) {
			return nil, notFound("option", optionID)
		}
		return nil, fmt.Errorf("failed to get option: %w", err)
	}
	return option, nil
}

// rejected records a failed admission and returns err unchanged.
func (s *VoteService) rejected(err error, principal model.Principal, pollID, questionID, optionID string) error {
	reason := rejectReason(err)
	if reason == "" {
		return err
	}
	s.metrics.IncVoteRejected(reason)
	s.logger.Info("vote_rejected",
		"reason", reason,
		"poll_id", pollID,
		"question_id", questionID,
		"option_id", optionID,
		"user_id", principal.UserID,
	)
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return metrics.RejectNotFound
	case errors.Is(err, ErrForbidden):
		return metrics.RejectForbidden
	case errors.Is(err, ErrOptionMismatch):
		return metrics.RejectOptionMismatch
	case errors.Is(err, ErrPollClosed):
		return metrics.RejectPollClosed
	case errors.Is(err, ErrDuplicateVote):
		return metrics.RejectDuplicate
	}
	return ""
}

func duplicateVote(pollID, questionID string) *Error {
	return &Error{
		Kind:       ErrDuplicateVote,
		PollID:     pollID,
		QuestionID: questionID,
		Message:    "you have already voted on this question",
	}
}

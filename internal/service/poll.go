package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tallyhub/tallyhub/internal/events"
	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/policy"
	"github.com/tallyhub/tallyhub/internal/repository"
)

const (
	maxTitleLength = 200
	maxTextLength  = 255
	minOptions     = 2
	maxOptions     = 20
	defaultLimit   = 20
	maxLimit       = 100
)

// Close outcome messages.
const (
	MsgPollClosed        = "Poll closed successfully."
	MsgPollAlreadyClosed = "Poll already closed."
)

// PollService handles poll and question business logic.
type PollService struct {
	store     PollStore
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	opts      Options
}

// NewPollService creates a new PollService.
func NewPollService(store PollStore, publisher events.Publisher, recorder metrics.Recorder, logger *slog.Logger, opts Options) *PollService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if publisher == nil {
		publisher = events.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PollService{
		store:     store,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger.With("component", "service.poll"),
		opts:      opts.withDefaults(),
	}
}

// Now returns the service clock's current time. Handlers use it to
// report poll status consistently with admission.
func (s *PollService) Now() time.Time {
	return s.opts.Clock.Now()
}

// CreatePollInput defines input for creating a poll.
type CreatePollInput struct {
	Title       string
	Description string
	Public      *bool
	ExpiresAt   *time.Time
}

// CreatePoll creates a poll owned by the principal. Polls are public unless
// Public is explicitly false.
func (s *PollService) CreatePoll(ctx context.Context, principal model.Principal, input CreatePollInput) (*model.Poll, error) {
	if !principal.Authenticated {
		return nil, ErrUnauthenticated
	}

	title, err := validateText("title", input.Title, maxTitleLength)
	if err != nil {
		return nil, err
	}

	now := s.opts.Clock.Now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, invalid("expires_at", "must be in the future")
	}

	public := true
	if input.Public != nil {
		public = *input.Public
	}

	poll := &model.Poll{
		ID:          s.opts.NewID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     principal.UserID,
		Public:      public,
		ExpiresAt:   utcPtr(input.ExpiresAt),
		CreatedAt:   now,
	}

	if err := s.store.CreatePoll(ctx, poll); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	s.metrics.IncPollCreated()
	s.logger.Info("poll_created", "poll_id", poll.ID, "owner_id", poll.OwnerID, "public", poll.Public)

	return poll, nil
}

// GetPoll returns a poll the principal may read.
func (s *PollService) GetPoll(ctx context.Context, principal model.Principal, id string) (*model.Poll, error) {
	poll, err := s.loadPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(principal, poll) {
		return nil, forbidden(poll.ID, "read")
	}
	return poll, nil
}

// ListPollsInput defines input for listing polls.
type ListPollsInput struct {
	Cursor string
	Limit  int
}

// ListPollsOutput defines output for listing polls.
type ListPollsOutput struct {
	Polls      []*model.Poll
	NextCursor string
	HasMore    bool
}

// ListPolls returns the polls visible to the principal, newest first.
func (s *PollService) ListPolls(ctx context.Context, principal model.Principal, input ListPollsInput) (*ListPollsOutput, error) {
	if input.Limit <= 0 || input.Limit > maxLimit {
		input.Limit = defaultLimit
	}

	scope := policy.VisibleTo(principal)
	filter := repository.PollFilter{
		All:     scope.Scope == policy.ScopeAll,
		OwnerID: scope.OwnerID,
	}

	polls, next, err := s.store.ListPolls(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, invalid("cursor", "invalid pagination cursor")
		}
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	return &ListPollsOutput{
		Polls:      polls,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// UpdatePollInput defines input for updating a poll. Nil fields are left unchanged.
type UpdatePollInput struct {
	ID          string
	Title       *string
	Description *string
	Public      *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// UpdatePoll changes a poll's mutable fields. The closed flag is not
// mutable here; use ClosePoll.
func (s *PollService) UpdatePoll(ctx context.Context, principal model.Principal, input UpdatePollInput) (*model.Poll, error) {
	poll, err := s.loadPoll(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !policy.CanWrite(principal, poll) {
		return nil, forbidden(poll.ID, "modify")
	}

	if input.Title != nil {
		title, err := validateText("title", *input.Title, maxTitleLength)
		if err != nil {
			return nil, err
		}
		poll.Title = title
	}
	if input.Description != nil {
		poll.Description = strings.TrimSpace(*input.Description)
	}
	if input.Public != nil {
		poll.Public = *input.Public
	}
	switch {
	case input.ClearExpiry:
		poll.ExpiresAt = nil
	case input.ExpiresAt != nil:
		if !input.ExpiresAt.After(s.opts.Clock.Now()) {
			return nil, invalid("expires_at", "must be in the future")
		}
		poll.ExpiresAt = utcPtr(input.ExpiresAt)
	}

	if err := s.store.UpdatePoll(ctx, poll); err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, notFound("poll", poll.ID)
		}
		return nil, fmt.Errorf("failed to update poll: %w", err)
	}

	s.logger.Info("poll_updated", "poll_id", poll.ID)
	return poll, nil
}

// CloseResult reports the outcome of a close request.
type CloseResult struct {
	Poll          *model.Poll
	AlreadyClosed bool
	Message       string
}

// ClosePoll moves a poll from OPEN to CLOSED. Closing an already-closed
// poll is not an error; the result reports AlreadyClosed.
func (s *PollService) ClosePoll(ctx context.Context, principal model.Principal, id string) (*CloseResult, error) {
	poll, err := s.loadPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanWrite(principal, poll) {
		return nil, forbidden(poll.ID, "close")
	}

	changed, err := s.store.ClosePoll(ctx, poll.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, notFound("poll", poll.ID)
		}
		return nil, fmt.Errorf("failed to close poll: %w", err)
	}
	poll.Closed = true

	if !changed {
		return &CloseResult{Poll: poll, AlreadyClosed: true, Message: MsgPollAlreadyClosed}, nil
	}

	s.metrics.IncPollClosed()
	s.logger.Info("poll_closed", "poll_id", poll.ID, "closed_by", principal.UserID)
	s.publisher.PublishAsync(events.Event{
		Type:       events.TypePollClosed,
		PollID:     poll.ID,
		UserID:     principal.UserID,
		OccurredAt: s.opts.Clock.Now(),
	})

	return &CloseResult{Poll: poll, Message: MsgPollClosed}, nil
}

// DeletePoll removes a poll with all of its questions, options and votes.
func (s *PollService) DeletePoll(ctx context.Context, principal model.Principal, id string) error {
	poll, err := s.loadPoll(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanWrite(principal, poll) {
		return forbidden(poll.ID, "delete")
	}

	if err := s.store.DeletePoll(ctx, poll.ID); err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return notFound("poll", poll.ID)
		}
		return fmt.Errorf("failed to delete poll: %w", err)
	}

	s.metrics.IncPollDeleted()
	s.logger.Info("poll_deleted", "poll_id", poll.ID)
	return nil
}

// CreateQuestionInput defines input for adding a question to a poll.
type CreateQuestionInput struct {
	PollID     string
	Text       string
	ChoiceMode model.ChoiceMode
	Options    []string
}

// CreateQuestion adds a question with its options to a poll the principal owns.
func (s *PollService) CreateQuestion(ctx context.Context, principal model.Principal, input CreateQuestionInput) (*model.Question, error) {
	poll, err := s.loadPoll(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	if !policy.CanWrite(principal, poll) {
		return nil, forbidden(poll.ID, "add questions to")
	}

	text, err := validateText("text", input.Text, maxTextLength)
	if err != nil {
		return nil, err
	}

	mode := input.ChoiceMode
	if mode == "" {
		mode = model.ChoiceSingle
	}
	if !mode.IsValid() {
		return nil, invalid("choice_mode", "must be SINGLE or MULTIPLE")
	}

	if len(input.Options) < minOptions || len(input.Options) > maxOptions {
		return nil, invalid("options", fmt.Sprintf("must have between %d and %d options", minOptions, maxOptions))
	}

	now := s.opts.Clock.Now()
	question := &model.Question{
		ID:         s.opts.NewID(),
		PollID:     poll.ID,
		Text:       text,
		ChoiceMode: mode,
		CreatedAt:  now,
	}

	options := make([]*model.Option, 0, len(input.Options))
	for i, raw := range input.Options {
		optText, err := validateText(fmt.Sprintf("options[%d]", i), raw, maxTextLength)
		if err != nil {
			return nil, err
		}
		options = append(options, &model.Option{
			ID:         s.opts.NewID(),
			QuestionID: question.ID,
			Text:       optText,
			// Spread by index so creation order survives millisecond storage.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		})
	}

	if err := s.store.CreateQuestion(ctx, question, options); err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, notFound("poll", poll.ID)
		}
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.metrics.IncQuestionCreated()
	s.logger.Info("question_created",
		"poll_id", poll.ID,
		"question_id", question.ID,
		"choice_mode", string(mode),
		"options", len(options),
	)

	return question, nil
}

// ListQuestions returns a readable poll's questions, newest first, with options.
func (s *PollService) ListQuestions(ctx context.Context, principal model.Principal, pollID string) ([]*model.Question, error) {
	poll, err := s.GetPoll(ctx, principal, pollID)
	if err != nil {
		return nil, err
	}

	questions, err := s.store.ListQuestions(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if err := s.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetQuestion returns one question of a readable poll with its options.
// A question that belongs to another poll is reported as not found.
func (s *PollService) GetQuestion(ctx context.Context, principal model.Principal, pollID, questionID string) (*model.Question, error) {
	poll, err := s.GetPoll(ctx, principal, pollID)
	if err != nil {
		return nil, err
	}

	question, err := loadQuestion(ctx, s.store, poll.ID, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.attachOptions(ctx, []*model.Question{question}); err != nil {
		return nil, err
	}
	return question, nil
}

// UpdateQuestionInput defines input for editing a question. Nil fields are
// left unchanged.
type UpdateQuestionInput struct {
	PollID     string
	QuestionID string
	Text       *string
	ChoiceMode *model.ChoiceMode
}

// UpdateQuestion edits a question of a poll the principal owns. The choice
// mode can only change before the question receives its first vote.
func (s *PollService) UpdateQuestion(ctx context.Context, principal model.Principal, input UpdateQuestionInput) (*model.Question, error) {
	poll, err := s.loadPoll(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	if !policy.CanWrite(principal, poll) {
		return nil, forbidden(poll.ID, "edit questions of")
	}

	question, err := loadQuestion(ctx, s.store, poll.ID, input.QuestionID)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		text, err := validateText("text", *input.Text, maxTextLength)
		if err != nil {
			return nil, err
		}
		question.Text = text
	}
	if input.ChoiceMode != nil {
		if !input.ChoiceMode.IsValid() {
			return nil, invalid("choice_mode", "must be SINGLE or MULTIPLE")
		}
		question.ChoiceMode = *input.ChoiceMode
	}

	if err := s.store.UpdateQuestion(ctx, question); err != nil {
		switch {
		case errors.Is(err, repository.ErrQuestionNotFound):
			return nil, notFound("question", question.ID)
		case errors.Is(err, repository.ErrQuestionHasVotes):
			return nil, &Error{
				Kind:       ErrConflict,
				PollID:     poll.ID,
				QuestionID: question.ID,
				Field:      "choice_mode",
				Message:    "choice mode cannot change once the question has votes",
			}
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if err := s.attachOptions(ctx, []*model.Question{question}); err != nil {
		return nil, err
	}

	s.logger.Info("question_updated", "poll_id", poll.ID, "question_id", question.ID)
	return question, nil
}

// DeleteQuestion removes a question with its options and votes.
func (s *PollService) DeleteQuestion(ctx context.Context, principal model.Principal, pollID, questionID string) error {
	poll, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if !policy.CanWrite(principal, poll) {
		return forbidden(poll.ID, "delete questions of")
	}

	question, err := loadQuestion(ctx, s.store, poll.ID, questionID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteQuestion(ctx, question.ID); err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return notFound("question", question.ID)
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("question_deleted", "poll_id", poll.ID, "question_id", question.ID)
	return nil
}

func (s *PollService) attachOptions(ctx context.Context, questions []*model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	ids := make([]string, len(questions))
	byID := make(map[string]*model.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		byID[q.ID] = q
		q.Options = nil
	}

	options, err := s.store.ListOptions(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list options: %w", err)
	}
	for _, o := range options {
		if q, ok := byID[o.QuestionID]; ok {
			q.Options = append(q.Options, o)
		}
	}
	return nil
}

func (s *PollService) loadPoll(ctx context.Context, id string) (*model.Poll, error) {
	return loadPoll(ctx, s.store, id)
}

func loadPoll(ctx context.Context, store PollStore, id string) (*model.Poll, error) {
	if strings.TrimSpace(id) == "" {
		return nil, notFound("poll", id)
	}
	poll, err := store.GetPoll(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, notFound("poll", id)
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return poll, nil
}

func loadQuestion(ctx context.Context, store PollStore, pollID, questionID string) (*model.Question, error) {
	if strings.TrimSpace(questionID) == "" {
		return nil, notFound("question", questionID)
	}
	question, err := store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, notFound("question", questionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if pollID != "" && question.PollID != pollID {
		e := notFound("question", questionID)
		e.PollID = pollID
		return nil, e
	}
	return question, nil
}

func validateText(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return value, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

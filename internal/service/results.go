package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/model"
)

// ResultsStores is what the results aggregator reads.
type ResultsStores interface {
	PollStore
	VoteStore
}

// ResultsService aggregates vote counts per option.
type ResultsService struct {
	store   ResultsStores
	polls   *PollService
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewResultsService creates a new ResultsService. Access checks are shared
// with polls so reading results follows the same rules as reading the poll.
func NewResultsService(store ResultsStores, polls *PollService, recorder metrics.Recorder, logger *slog.Logger) *ResultsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsService{
		store:   store,
		polls:   polls,
		metrics: recorder,
		logger:  logger.With("component", "service.results"),
	}
}

// GetResults returns results for a poll the principal may read.
func (s *ResultsService) GetResults(ctx context.Context, principal model.Principal, pollID string) (*model.PollResults, error) {
	poll, err := s.polls.GetPoll(ctx, principal, pollID)
	if err != nil {
		return nil, err
	}
	return s.Compute(ctx, poll)
}

// Compute builds results for poll from the current store state. Votes are
// counted with one grouped read per poll.
func (s *ResultsService) Compute(ctx context.Context, poll *model.Poll) (*model.PollResults, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveResultsDuration(time.Since(start))
	}()

	questions, err := s.store.ListQuestions(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	var options []*model.Option
	if len(questions) > 0 {
		ids := make([]string, len(questions))
		for i, q := range questions {
			ids[i] = q.ID
		}
		options, err = s.store.ListOptions(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list options: %w", err)
		}
	}

	counts, err := s.store.CountVotesByPoll(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	return Aggregate(poll, questions, options, counts), nil
}

// Aggregate assembles results from already-loaded rows. Question order is
// kept as given; options are grouped under their question in the order given.
// counts maps option ID to vote count; missing options count as zero.
func Aggregate(poll *model.Poll, questions []*model.Question, options []*model.Option, counts map[string]int64) *model.PollResults {
	byQuestion := make(map[string][]*model.Option, len(questions))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}

	results := &model.PollResults{
		PollID:    poll.ID,
		Title:     poll.Title,
		Questions: make([]model.QuestionResults, 0, len(questions)),
	}

	for _, q := range questions {
		opts := byQuestion[q.ID]

		var total int64
		for _, o := range opts {
			total += counts[o.ID]
		}

		qr := model.QuestionResults{
			QuestionID: q.ID,
			Text:       q.Text,
			ChoiceMode: q.ChoiceMode,
			TotalVotes: total,
			Options:    make([]model.OptionResults, 0, len(opts)),
		}
		for _, o := range opts {
			count := counts[o.ID]
			qr.Options = append(qr.Options, model.OptionResults{
				OptionID:   o.ID,
				Text:       o.Text,
				Count:      count,
				Percentage: Percentage(count, total),
			})
		}
		results.Questions = append(results.Questions, qr)
	}

	return results
}

// Percentage returns count as a share of total in percent, rounded to two
// decimal places. A zero total yields 0.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(total)) / 100
}

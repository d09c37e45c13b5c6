package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/tallyhub/tallyhub/internal/model"
)

// CreateQuestion inserts a question and its options in one transaction.
func (r *Repository) CreateQuestion(ctx context.Context, question *model.Question, options []*model.Option) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO questions (id, poll_id, text, choice_mode, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, question.ID, question.PollID, question.Text, string(question.ChoiceMode), question.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrPollNotFound
		}
		return fmt.Errorf("failed to create question: %w", err)
	}

	batch := &pgx.Batch{}
	for _, opt := range options {
		batch.Queue(`
			INSERT INTO options (id, question_id, text, created_at)
			VALUES ($1, $2, $3, $4)
		`, opt.ID, question.ID, opt.Text, opt.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to create options: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit question: %w", err)
	}

	question.Options = options
	return nil
}

// GetQuestion retrieves a question by its ID, without options.
func (r *Repository) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT id, poll_id, text, choice_mode, created_at FROM questions WHERE id = $1`

	question, err := scanQuestion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return question, nil
}

// ListQuestions returns the questions of a poll, newest first.
func (r *Repository) ListQuestions(ctx context.Context, pollID string) ([]*model.Question, error) {
	query := `
		SELECT id, poll_id, text, choice_mode, created_at
		FROM questions
		WHERE poll_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// UpdateQuestion saves a question's text and choice mode. The mode may only
// change while the question has no votes; otherwise ErrQuestionHasVotes.
// The question row is locked so a concurrent vote sees either the old or the
// new mode, never a mix.
func (r *Repository) UpdateQuestion(ctx context.Context, question *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var mode string
	err = tx.QueryRow(ctx, `SELECT choice_mode FROM questions WHERE id = $1 FOR UPDATE`, question.ID).Scan(&mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to lock question: %w", err)
	}

	if model.ChoiceMode(mode) != question.ChoiceMode {
		var hasVotes bool
		err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM votes WHERE question_id = $1)`, question.ID).Scan(&hasVotes)
		if err != nil {
			return fmt.Errorf("failed to check question votes: %w", err)
		}
		if hasVotes {
			return ErrQuestionHasVotes
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions
		SET text = $2, choice_mode = $3
		WHERE id = $1
	`, question.ID, question.Text, string(question.ChoiceMode))
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit question: %w", err)
	}
	return nil
}

// DeleteQuestion removes a question together with its options and votes.
func (r *Repository) DeleteQuestion(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// GetOption retrieves an option by its ID.
func (r *Repository) GetOption(ctx context.Context, id string) (*model.Option, error) {
	query := `SELECT id, question_id, text, created_at FROM options WHERE id = $1`

	option, err := scanOption(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOptionNotFound
		}
		return nil, fmt.Errorf("failed to get option: %w", err)
	}

	return option, nil
}

// ListOptions returns the options of the given questions in one query,
// ordered by question then creation time.
func (r *Repository) ListOptions(ctx context.Context, questionIDs []string) ([]*model.Option, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, question_id, text, created_at
		FROM options
		WHERE question_id = ANY($1)
		ORDER BY question_id, created_at, id
	`

	rows, err := r.pool.Query(ctx, query, pq.Array(questionIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list options: %w", err)
	}
	defer rows.Close()

	var options []*model.Option
	for rows.Next() {
		option, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}

	return options, nil
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var q model.Question
	var mode string
	if err := row.Scan(&q.ID, &q.PollID, &q.Text, &mode, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.ChoiceMode = model.ChoiceMode(mode)
	return &q, nil
}

func scanOption(row pgx.Row) (*model.Option, error) {
	var o model.Option
	if err := row.Scan(&o.ID, &o.QuestionID, &o.Text, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

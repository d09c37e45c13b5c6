package sqlite

import (
	"context"
	"fmt"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

// CreateQuestion inserts a question and its options atomically.
func (s *Store) CreateQuestion(ctx context.Context, question *model.Question, options []*model.Option) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO questions (id, poll_id, text, choice_mode, created_at) VALUES (?, ?, ?, ?, ?)`,
		question.ID, question.PollID, question.Text, string(question.ChoiceMode), toMillis(question.CreatedAt),
	); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrPollNotFound
		}
		return fmt.Errorf("create question: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO options (id, question_id, text, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare option insert: %w", err)
	}
	defer stmt.Close()

	for _, opt := range options {
		if _, err := stmt.ExecContext(ctx, opt.ID, question.ID, opt.Text, toMillis(opt.CreatedAt)); err != nil {
			return fmt.Errorf("create option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit question: %w", err)
	}
	question.Options = options
	return nil
}

// GetQuestion retrieves a question by ID, without options.
func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, poll_id, text, choice_mode, created_at FROM questions WHERE id = ?`, id)
	question, err := scanQuestion(row)
	if err != nil {
		return nil, notFound(err, repository.ErrQuestionNotFound, "get question")
	}
	return question, nil
}

// ListQuestions returns a poll's questions newest first.
func (s *Store) ListQuestions(ctx context.Context, pollID string) ([]*model.Question, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, poll_id, text, choice_mode, created_at FROM questions
		 WHERE poll_id = ? ORDER BY created_at DESC, id DESC`, pollID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestion saves a question's text and choice mode. The mode may only
// change while the question has no votes; otherwise ErrQuestionHasVotes.
func (s *Store) UpdateQuestion(ctx context.Context, question *model.Question) error {
	result, err := s.sqlDB.ExecContext(ctx, `
		UPDATE questions SET text = ?, choice_mode = ?
		WHERE id = ?
		  AND (choice_mode = ? OR NOT EXISTS (SELECT 1 FROM votes WHERE question_id = ?))`,
		question.Text, string(question.ChoiceMode), question.ID, string(question.ChoiceMode), question.ID,
	)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return nil
	}

	var exists bool
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM questions WHERE id = ?)`, question.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check question: %w", err)
	}
	if !exists {
		return repository.ErrQuestionNotFound
	}
	return repository.ErrQuestionHasVotes
}

// DeleteQuestion removes a question with its options and votes.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrQuestionNotFound
	}
	return nil
}

// GetOption retrieves an option by ID.
func (s *Store) GetOption(ctx context.Context, id string) (*model.Option, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, question_id, text, created_at FROM options WHERE id = ?`, id)
	option, err := scanOption(row)
	if err != nil {
		return nil, notFound(err, repository.ErrOptionNotFound, "get option")
	}
	return option, nil
}

// ListOptions returns options for the given questions in one query.
func (s *Store) ListOptions(ctx context.Context, questionIDs []string) ([]*model.Option, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(questionIDs))
	for i, id := range questionIDs {
		args[i] = id
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, question_id, text, created_at FROM options
		 WHERE question_id IN (`+placeholders(len(questionIDs))+`)
		 ORDER BY question_id, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var options []*model.Option
	for rows.Next() {
		option, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return options, nil
}

func scanQuestion(row scanner) (*model.Question, error) {
	var q model.Question
	var mode string
	var createdAt int64
	if err := row.Scan(&q.ID, &q.PollID, &q.Text, &mode, &createdAt); err != nil {
		return nil, err
	}
	q.ChoiceMode = model.ChoiceMode(mode)
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}

func scanOption(row scanner) (*model.Option, error) {
	var o model.Option
	var createdAt int64
	if err := row.Scan(&o.ID, &o.QuestionID, &o.Text, &createdAt); err != nil {
		return nil, err
	}
	o.CreatedAt = fromMillis(createdAt)
	return &o, nil
}

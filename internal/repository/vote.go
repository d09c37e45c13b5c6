package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tallyhub/tallyhub/internal/model"
)

// HasVote reports whether the user has any vote on the question.
func (r *Repository) HasVote(ctx context.Context, userID, questionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM votes WHERE user_id = $1 AND question_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, questionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}

	return exists, nil
}

// InsertVote stores a vote in a single statement. The single-choice flag is
// read from the question inside the same statement, and the option must
// belong to vote.QuestionID. The question row is share-locked against a
// concurrent choice mode change. A second single-choice vote by the same
// user fails with ErrConflict.
func (r *Repository) InsertVote(ctx context.Context, vote *model.Vote) error {
	query := `
		INSERT INTO votes (id, option_id, question_id, user_id, single_choice, created_at)
		SELECT $1, o.id, q.id, $4, q.choice_mode = 'SINGLE', $5
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE o.id = $2 AND q.id = $3
		FOR SHARE OF q
	`

	result, err := r.pool.Exec(ctx, query,
		vote.ID,
		vote.OptionID,
		vote.QuestionID,
		vote.UserID,
		vote.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == ConstraintSingleChoice {
			return ErrConflict
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOptionNotFound
	}

	return nil
}

// CountVotesByPoll returns vote counts keyed by option ID for every option
// of the poll that has at least one vote, in a single grouped query.
func (r *Repository) CountVotesByPoll(ctx context.Context, pollID string) (map[string]int64, error) {
	query := `
		SELECT v.option_id, COUNT(*)
		FROM votes v
		JOIN questions q ON q.id = v.question_id
		WHERE q.poll_id = $1
		GROUP BY v.option_id
	`

	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var optionID string
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote counts: %w", err)
	}

	return counts, nil
}

// isForeignKeyViolation checks for SQLSTATE 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

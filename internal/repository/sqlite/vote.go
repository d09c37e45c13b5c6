package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

// singleChoiceColumns is how SQLite names uq_votes_single_choice in a
// constraint error: it reports the indexed columns, not the index name.
const singleChoiceColumns = "votes.user_id, votes.question_id"

func isSingleChoiceViolation(message string) bool {
	return strings.Contains(message, singleChoiceColumns) ||
		strings.Contains(message, repository.ConstraintSingleChoice)
}

// HasVote reports whether the user has any vote on the question.
func (s *Store) HasVote(ctx context.Context, userID, questionID string) (bool, error) {
	var exists bool
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM votes WHERE user_id = ? AND question_id = ?)`,
		userID, questionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// InsertVote stores a vote. The single-choice flag comes from the question
// row in the same statement; a duplicate single-choice vote is ErrConflict.
func (s *Store) InsertVote(ctx context.Context, vote *model.Vote) error {
	result, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO votes (id, option_id, question_id, user_id, single_choice, created_at)
		SELECT ?, o.id, q.id, ?, CASE q.choice_mode WHEN 'SINGLE' THEN 1 ELSE 0 END, ?
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE o.id = ? AND q.id = ?`,
		vote.ID, vote.UserID, toMillis(vote.CreatedAt), vote.OptionID, vote.QuestionID,
	)
	if err != nil {
		if message, ok := uniqueViolation(err); ok && isSingleChoiceViolation(message) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrUserNotFound
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrOptionNotFound
	}
	return nil
}

// CountVotesByPoll returns per-option vote counts for a poll in one grouped query.
func (s *Store) CountVotesByPoll(ctx context.Context, pollID string) (map[string]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT v.option_id, COUNT(*)
		FROM votes v
		JOIN questions q ON q.id = v.question_id
		WHERE q.poll_id = ?
		GROUP BY v.option_id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var optionID string
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote counts: %w", err)
	}
	return counts, nil
}

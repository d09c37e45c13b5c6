package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

const pollColumns = `id, title, description, owner_id, is_public, is_closed, expires_at, created_at`

// CreatePoll inserts one poll.
func (s *Store) CreatePoll(ctx context.Context, poll *model.Poll) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO polls (`+pollColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		poll.ID, poll.Title, poll.Description, poll.OwnerID, poll.Public, poll.Closed,
		toNullMillis(poll.ExpiresAt), toMillis(poll.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrUserNotFound
		}
		return fmt.Errorf("create poll: %w", err)
	}
	return nil
}

// GetPoll retrieves a poll by ID.
func (s *Store) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = ?`, id)
	poll, err := scanPoll(row)
	if err != nil {
		return nil, notFound(err, repository.ErrPollNotFound, "get poll")
	}
	return poll, nil
}

// ListPolls returns a page of polls newest first.
func (s *Store) ListPolls(ctx context.Context, filter repository.PollFilter, cursor string, limit int) ([]*model.Poll, string, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE 1 = 1`
	args := []any{}

	if !filter.All {
		query += ` AND (is_public = 1 OR owner_id = ?)`
		args = append(args, filter.OwnerID)
	}

	if cursor != "" {
		c, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		created := toMillis(c.CreatedAt)
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, created, created, c.ID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var polls []*model.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate polls: %w", err)
	}

	var next string
	if len(polls) > limit {
		polls = polls[:limit]
		last := polls[len(polls)-1]
		next = repository.EncodeCursor(&repository.PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}
	return polls, next, nil
}

// UpdatePoll updates mutable poll fields. The closed flag is not touched.
func (s *Store) UpdatePoll(ctx context.Context, poll *model.Poll) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE polls SET title = ?, description = ?, is_public = ?, expires_at = ? WHERE id = ?`,
		poll.Title, poll.Description, poll.Public, toNullMillis(poll.ExpiresAt), poll.ID,
	)
	if err != nil {
		return fmt.Errorf("update poll: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrPollNotFound
	}
	return nil
}

// ClosePoll flips the closed flag, reporting false if it was already set.
func (s *Store) ClosePoll(ctx context.Context, id string) (bool, error) {
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE polls SET is_closed = 1 WHERE id = ? AND is_closed = 0`, id)
	if err != nil {
		return false, fmt.Errorf("close poll: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return true, nil
	}

	var exists bool
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM polls WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check poll: %w", err)
	}
	if !exists {
		return false, repository.ErrPollNotFound
	}
	return false, nil
}

// DeletePoll removes a poll and everything below it.
func (s *Store) DeletePoll(ctx context.Context, id string) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrPollNotFound
	}
	return nil
}

func scanPoll(row scanner) (*model.Poll, error) {
	var poll model.Poll
	var expiresAt sql.NullInt64
	var createdAt int64
	if err := row.Scan(
		&poll.ID,
		&poll.Title,
		&poll.Description,
		&poll.OwnerID,
		&poll.Public,
		&poll.Closed,
		&expiresAt,
		&createdAt,
	); err != nil {
		return nil, err
	}
	poll.ExpiresAt = fromNullMillis(expiresAt)
	poll.CreatedAt = fromMillis(createdAt)
	return &poll, nil
}

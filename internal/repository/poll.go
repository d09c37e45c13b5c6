package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tallyhub/tallyhub/internal/model"
)

const pollColumns = `id, title, description, owner_id, is_public, is_closed, expires_at, created_at`

// CreatePoll inserts a new poll into the database.
func (r *Repository) CreatePoll(ctx context.Context, poll *model.Poll) error {
	query := `
		INSERT INTO polls (` + pollColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		poll.ID,
		poll.Title,
		poll.Description,
		poll.OwnerID,
		poll.Public,
		poll.Closed,
		poll.ExpiresAt,
		poll.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create poll: %w", err)
	}

	return nil
}

// GetPoll retrieves a poll by its ID.
func (r *Repository) GetPoll(ctx context.Context, id string) (*model.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`

	poll, err := scanPoll(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	return poll, nil
}

// ListPolls retrieves a page of polls newest first.
func (r *Repository) ListPolls(ctx context.Context, filter PollFilter, cursor string, limit int) ([]*model.Poll, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = DecodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
	}

	query := `SELECT ` + pollColumns + ` FROM polls WHERE TRUE`
	args := []any{}
	argIndex := 1

	if !filter.All {
		query += fmt.Sprintf(" AND (is_public OR owner_id = $%d)", argIndex)
		args = append(args, filter.OwnerID)
		argIndex++
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var polls []*model.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating polls: %w", err)
	}

	var nextCursor string
	if len(polls) > limit {
		polls = polls[:limit]
		last := polls[len(polls)-1]
		nextCursor = EncodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}

	return polls, nextCursor, nil
}

// UpdatePoll updates a poll's mutable fields. The closed flag is not touched.
func (r *Repository) UpdatePoll(ctx context.Context, poll *model.Poll) error {
	query := `
		UPDATE polls
		SET title = $2, description = $3, is_public = $4, expires_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		poll.ID,
		poll.Title,
		poll.Description,
		poll.Public,
		poll.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPollNotFound
	}

	return nil
}

// ClosePoll flips the closed flag. It reports false when the poll was
// already closed; the flag never goes back to false.
func (r *Repository) ClosePoll(ctx context.Context, id string) (bool, error) {
	result, err := r.pool.Exec(ctx, `UPDATE polls SET is_closed = TRUE WHERE id = $1 AND NOT is_closed`, id)
	if err != nil {
		return false, fmt.Errorf("failed to close poll: %w", err)
	}
	if result.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM polls WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check poll existence: %w", err)
	}
	if !exists {
		return false, ErrPollNotFound
	}
	return false, nil
}

// DeletePoll removes a poll; questions, options and votes cascade.
func (r *Repository) DeletePoll(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPollNotFound
	}
	return nil
}

func scanPoll(row pgx.Row) (*model.Poll, error) {
	var poll model.Poll
	err := row.Scan(
		&poll.ID,
		&poll.Title,
		&poll.Description,
		&poll.OwnerID,
		&poll.Public,
		&poll.Closed,
		&poll.ExpiresAt,
		&poll.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

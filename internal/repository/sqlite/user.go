package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/tallyhub/tallyhub/internal/model"
	"github.com/tallyhub/tallyhub/internal/repository"
)

const userColumns = `id, username, email, password_hash, is_superuser, is_active, created_at`

// CreateUser inserts one user.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Superuser, user.Active, toMillis(user.CreatedAt),
	)
	if err != nil {
		if message, ok := uniqueViolation(err); ok {
			if strings.Contains(message, "users.email") {
				return repository.ErrEmailExists
			}
			return repository.ErrUsernameExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, repository.ErrUserNotFound, "get user")
	}
	return user, nil
}

// GetUserByLogin retrieves a user by username, falling back to email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? ORDER BY (username = ?) DESC LIMIT 1`,
		login, login, login,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, repository.ErrUserNotFound, "get user by login")
	}
	return user, nil
}

// ListUsers returns a page of users newest first.
func (s *Store) ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}

	if cursor != "" {
		c, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		created := toMillis(c.CreatedAt)
		query += ` WHERE (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, created, created, c.ID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate users: %w", err)
	}

	var next string
	if len(users) > limit {
		users = users[:limit]
		last := users[len(users)-1]
		next = repository.EncodeCursor(&repository.PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}
	return users, next, nil
}

// SetSuperuser grants or revokes the superuser flag.
func (s *Store) SetSuperuser(ctx context.Context, id string, superuser bool) error {
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE users SET is_superuser = ? WHERE id = ?`, superuser, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	var createdAt int64
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Superuser,
		&user.Active,
		&createdAt,
	); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

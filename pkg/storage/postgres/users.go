package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations
const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, is_active, is_staff, is_superuser, created_at, updated_at`

// CreateUser persists a new account. A duplicate email maps to
// storage.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	start := time.Now()

	created := *user
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		user.Email, user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	s.observe("create_user", start, err)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, storage.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

// GetUserByEmail looks an account up by login email, case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	start := time.Now()

	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)`,
		email,
	))
	s.observe("get_user_by_email", start, ignoreNotFound(err))
	return user, err
}

// GetUserByID looks an account up by id
func (s *Store) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	start := time.Now()

	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`,
		id,
	))
	s.observe("get_user_by_id", start, ignoreNotFound(err))
	return user, err
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// ignoreNotFound keeps expected misses out of the storage error metrics
func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

const tokenColumns = `id, user_id, key, key_hash, expires_at, created_at`

// GetOrCreateToken inserts t unless the user already has a token, in
// which case the existing row wins. ON CONFLICT DO NOTHING plus the
// re-read makes the race between concurrent logins safe: exactly one
// insert succeeds and every caller sees the same row.
func (s *Store) GetOrCreateToken(ctx context.Context, t *auth.Token) (*auth.Token, bool, error) {
	start := time.Now()

	created := *t
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tokens (user_id, key, key_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, created_at`,
		t.UserID, t.Key, t.KeyHash, t.ExpiresAt,
	).Scan(&created.ID, &created.CreatedAt)

	if err == nil {
		s.observe("get_or_create_token", start, nil)
		return &created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.observe("get_or_create_token", start, err)
		return nil, false, fmt.Errorf("failed to create token: %w", err)
	}

	// Conflict: another login holds the row. Read it back.
	existing, err := scanToken(s.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE user_id = $1`,
		t.UserID,
	))
	s.observe("get_or_create_token", start, ignoreNotFound(err))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetTokenByHash looks a token up by its SHA-256 digest, consulting the
// cache first. Expiry is checked by the caller, so a stale cache entry
// cannot revive an expired token.
func (s *Store) GetTokenByHash(ctx context.Context, keyHash string) (*auth.Token, error) {
	if s.cache != nil {
		if token, ok := s.cache.GetToken(ctx, keyHash); ok {
			return token, nil
		}
	}

	start := time.Now()
	token, err := scanToken(s.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE key_hash = $1`,
		keyHash,
	))
	s.observe("get_token_by_hash", start, ignoreNotFound(err))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetToken(ctx, token)
	}
	return token, nil
}

// DeleteTokenByHash removes a token
func (s *Store) DeleteTokenByHash(ctx context.Context, keyHash string) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE key_hash = $1`,
		keyHash,
	)
	s.observe("delete_token", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if s.cache != nil {
		s.cache.DeleteToken(ctx, keyHash)
	}
	return nil
}

// DeleteExpiredTokens purges tokens whose expiry is before now
func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE expires_at IS NOT NULL AND expires_at < $1`,
		now,
	)
	s.observe("delete_expired_tokens", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return purged, nil
}

func scanToken(row *sql.Row) (*auth.Token, error) {
	var token auth.Token
	err := row.Scan(
		&token.ID, &token.UserID, &token.Key, &token.KeyHash,
		&token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}
	return &token, nil
}

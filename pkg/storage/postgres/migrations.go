package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations run in order on startup. Each statement is idempotent so a
// restart against an already-migrated database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx
		ON users (LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS tokens (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		key        TEXT NOT NULL,
		key_hash   TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tokens_expires_at_idx
		ON tokens (expires_at) WHERE expires_at IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS books (
		id           BIGSERIAL PRIMARY KEY,
		title        TEXT NOT NULL,
		author       TEXT NOT NULL,
		publish_date DATE NOT NULL,
		isbn         TEXT NOT NULL,
		price        NUMERIC(10,2) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS books_author_idx ON books (author)`,
	`CREATE INDEX IF NOT EXISTS books_publish_date_idx ON books (publish_date)`,
}

// Migrate applies the schema
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

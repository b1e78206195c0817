package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventpulse/backend/internal/model"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			reset_token_hash TEXT,
			reset_token_expires TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token TEXT PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS refresh_tokens_user_id_idx ON refresh_tokens(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) CreateUser(ctx context.Context, name, email, passwordHash, role string) (*model.User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, password_hash, role, reset_token_hash, reset_token_expires, created_at, updated_at
	`
	var user model.User
	err := db.Pool.QueryRow(ctx, query, uuid.NewString(), name, email, passwordHash, role).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = $1`, email)
}

func (db *Postgres) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = $1`, userID)
}

// GetUserByResetTokenHash only matches rows whose reset window is still open.
func (db *Postgres) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return db.getUser(ctx, `WHERE reset_token_hash = $1 AND reset_token_expires > NOW()`, tokenHash)
}

func (db *Postgres) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, reset_token_hash, reset_token_expires, created_at, updated_at
		FROM users
	` + where
	var user model.User
	err := db.Pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.Pool.Exec(ctx, query, tokenHash, expiresAt, userID)
	return err
}

// UpdatePassword replaces the hash and consumes any outstanding reset token.
func (db *Postgres) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = NOW()
		WHERE id = $2
	`
	_, err := db.Pool.Exec(ctx, query, passwordHash, userID)
	return err
}

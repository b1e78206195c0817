package db

import (
	"context"

	"github.com/eventpulse/backend/internal/model"
)

// Refresh-token records are keyed by exact token value. A token is live only
// while its record exists; rotation and logout delete it. There is
// deliberately no UPDATE path.

func (db *Postgres) InsertRefreshToken(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, created_at)
		VALUES ($1, $2, NOW())
	`
	_, err := db.Pool.Exec(ctx, query, token, userID)
	return err
}

func (db *Postgres) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `
		SELECT token, user_id, created_at
		FROM refresh_tokens
		WHERE token = $1
	`
	var record model.RefreshToken
	err := db.Pool.QueryRow(ctx, query, token).Scan(
		&record.Token,
		&record.UserID,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (db *Postgres) DeleteRefreshToken(ctx context.Context, token string) error {
	query := `DELETE FROM refresh_tokens WHERE token = $1`
	_, err := db.Pool.Exec(ctx, query, token)
	return err
}

func (db *Postgres) DeleteRefreshTokenForUser(ctx context.Context, userID, token string) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2`
	_, err := db.Pool.Exec(ctx, query, userID, token)
	return err
}

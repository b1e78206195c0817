package db

import (
	"context"

	"github.com/eventpulse/backend/internal/model"
)

func (db *Postgres) EnsureContactSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS contact_messages (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := db.Pool.Exec(ctx, query)
	return err
}

func (db *Postgres) InsertContactMessage(ctx context.Context, req model.ContactRequest) (*model.ContactMessage, error) {
	query := `
		INSERT INTO contact_messages (name, email, subject, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, name, email, subject, body, created_at
	`
	var msg model.ContactMessage
	err := db.Pool.QueryRow(ctx, query, req.Name, req.Email, req.Subject, req.Body).Scan(
		&msg.ID,
		&msg.Name,
		&msg.Email,
		&msg.Subject,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (db *Postgres) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	query := `
		SELECT id, name, email, subject, body, created_at
		FROM contact_messages
		ORDER BY created_at DESC
	`
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ContactMessage
	for rows.Next() {
		var msg model.ContactMessage
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if list == nil {
		list = []model.ContactMessage{}
	}
	return list, nil
}

package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventpulse/backend/internal/model"
)

func (db *Postgres) EnsureEventSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS events_owner_id_idx ON events(owner_id)`,
		`CREATE INDEX IF NOT EXISTS events_published_starts_at_idx ON events(published, starts_at)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const eventColumns = `id, owner_id, title, description, category, location, starts_at, ends_at, published, created_at, updated_at`

func scanEvent(row pgxRow, e *model.Event) error {
	return row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.Title,
		&e.Description,
		&e.Category,
		&e.Location,
		&e.StartsAt,
		&e.EndsAt,
		&e.Published,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

type pgxRow interface {
	Scan(dest ...any) error
}

func (db *Postgres) CreateEvent(ctx context.Context, ownerID string, req model.CreateEventRequest) (*model.Event, error) {
	query := `
		INSERT INTO events (id, owner_id, title, description, category, location, starts_at, ends_at, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + eventColumns
	var event model.Event
	err := scanEvent(db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		ownerID,
		req.Title,
		req.Description,
		req.Category,
		req.Location,
		req.StartsAt,
		req.EndsAt,
		req.Published,
	), &event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (db *Postgres) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event model.Event
	if err := scanEvent(db.Pool.QueryRow(ctx, query, eventID), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListPublishedEvents returns published events, optionally narrowed by
// category or a case-insensitive title search.
func (db *Postgres) ListPublishedEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE published = TRUE`
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = $1`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		if len(args) == 1 {
			query += ` AND title ILIKE $1`
		} else {
			query += ` AND title ILIKE $2`
		}
	}
	query += ` ORDER BY starts_at ASC`

	return db.listEvents(ctx, query, args...)
}

func (db *Postgres) ListEventsByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_at DESC`
	return db.listEvents(ctx, query, ownerID)
}

func (db *Postgres) listEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if list == nil {
		list = []model.Event{}
	}
	return list, nil
}

func (db *Postgres) UpdateEvent(ctx context.Context, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	query := `
		UPDATE events
		SET title = $1, description = $2, category = $3, location = $4,
		    starts_at = $5, ends_at = $6, published = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING ` + eventColumns
	var event model.Event
	err := scanEvent(db.Pool.QueryRow(ctx, query,
		req.Title,
		req.Description,
		req.Category,
		req.Location,
		req.StartsAt,
		req.EndsAt,
		req.Published,
		eventID,
	), &event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (db *Postgres) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	return err
}

package service

import (
	"context"
	"time"

	"github.com/eventpulse/backend/internal/model"
)

// Store interfaces implemented by db.Postgres. Services depend on these so
// tests can substitute in-memory fakes.

type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type RefreshTokenStore interface {
	InsertRefreshToken(ctx context.Context, userID, token string) error
	GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokenForUser(ctx context.Context, userID, token string) error
}

type EventStore interface {
	CreateEvent(ctx context.Context, ownerID string, req model.CreateEventRequest) (*model.Event, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	ListPublishedEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	ListEventsByOwner(ctx context.Context, ownerID string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, eventID string, req model.UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type ContactStore interface {
	InsertContactMessage(ctx context.Context, req model.ContactRequest) (*model.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]model.ContactMessage, error)
}

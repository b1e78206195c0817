package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/db"
	"github.com/eventpulse/backend/internal/model"
)

var ErrEventNotFound = errors.New("event not found")

// EventService consumes the auth core purely as an authorization gate: it
// receives a verified AuthUser and applies ownership rules, nothing more.
type EventService struct {
	store  EventStore
	logger *zap.Logger
}

func NewEventService(store EventStore, logger *zap.Logger) *EventService {
	return &EventService{store: store, logger: logger}
}

func (s *EventService) Create(ctx context.Context, actor *model.AuthUser, req model.CreateEventRequest) (*model.Event, error) {
	if strings.TrimSpace(req.Title) == "" || req.StartsAt.IsZero() {
		return nil, ErrInvalidInput
	}
	return s.store.CreateEvent(ctx, actor.ID, req)
}

// Get returns a single event. Unpublished events exist only for their owner
// and admins; everyone else sees not-found rather than forbidden, so drafts
// are not discoverable.
func (s *EventService) Get(ctx context.Context, viewer *model.AuthUser, eventID string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if !event.Published && !canManage(viewer, event) {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *EventService) ListPublished(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	return s.store.ListPublishedEvents(ctx, filter)
}

func (s *EventService) ListMine(ctx context.Context, actor *model.AuthUser) ([]model.Event, error) {
	return s.store.ListEventsByOwner(ctx, actor.ID)
}

func (s *EventService) Update(ctx context.Context, actor *model.AuthUser, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	if strings.TrimSpace(req.Title) == "" || req.StartsAt.IsZero() {
		return nil, ErrInvalidInput
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !canManage(actor, event) {
		return nil, ErrForbidden
	}

	return s.store.UpdateEvent(ctx, eventID, req)
}

func (s *EventService) Delete(ctx context.Context, actor *model.AuthUser, eventID string) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrEventNotFound
		}
		return err
	}
	if !canManage(actor, event) {
		return ErrForbidden
	}

	return s.store.DeleteEvent(ctx, eventID)
}

func canManage(actor *model.AuthUser, event *model.Event) bool {
	if actor == nil {
		return false
	}
	return actor.ID == event.OwnerID || actor.Role == model.RoleAdmin
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/eventpulse/backend/internal/model"
)

type ContactService struct {
	store  ContactStore
	logger *zap.Logger
}

func NewContactService(store ContactStore, logger *zap.Logger) *ContactService {
	return &ContactService{store: store, logger: logger}
}

func (s *ContactService) Submit(ctx context.Context, req model.ContactRequest) (*model.ContactMessage, error) {
	if strings.TrimSpace(req.Name) == "" ||
		!strings.Contains(req.Email, "@") ||
		strings.TrimSpace(req.Body) == "" {
		return nil, ErrInvalidInput
	}
	return s.store.InsertContactMessage(ctx, req)
}

func (s *ContactService) List(ctx context.Context) ([]model.ContactMessage, error) {
	return s.store.ListContactMessages(ctx)
}

package mail

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers account mail. Delivery transport is intentionally
// abstracted: the auth flow only needs a best-effort send with an error it
// can surface.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// LogMailer writes mail to the log instead of sending it. Used in
// development and in deployments without an outbound mail relay.
type LogMailer struct {
	From   string
	Logger *zap.Logger
}

func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{From: from, Logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.Logger.Info("password reset mail",
		zap.String("from", m.From),
		zap.String("to", to),
		zap.String("reset_url", resetURL),
	)
	return nil
}

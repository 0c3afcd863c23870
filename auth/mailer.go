package auth

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers account emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// LogMailer writes outgoing mail to the log instead of sending it.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.Logger.Info("password reset requested", zap.String("to", to), zap.String("link", link))
	return nil
}

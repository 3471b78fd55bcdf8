package notify

import (
	"context"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// Notifier delivers account e-mails.
type Notifier interface {
	SendWelcome(ctx context.Context, user domain.User) error
}

// New returns an SMTP notifier when mail is enabled, otherwise a notifier
// that only logs.
func New(cfg config.MailConfig) Notifier {
	if !cfg.Enabled || cfg.Host == "" {
		return LogNotifier{}
	}
	return NewSMTPNotifier(cfg)
}

// LogNotifier records what would have been sent.
type LogNotifier struct{}

func (LogNotifier) SendWelcome(_ context.Context, user domain.User) error {
	logger.Log.Info().Str("username", user.Username).Str("email", user.Email).Msg("mail disabled, welcome e-mail skipped")
	return nil
}

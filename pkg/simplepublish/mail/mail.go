// Package mail holds Mailer implementations. There is no SMTP transport;
// LogMailer records messages in the structured log so a deployment can
// route them through its log pipeline.
package mail

import (
	"context"
	"errors"
	"log/slog"
	netmail "net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// LogMailer "delivers" messages by logging them.
type LogMailer struct {
	logger   *slog.Logger
	withBody bool
}

// Option configures a LogMailer.
type Option func(*LogMailer)

// WithBody includes the HTML body in the log line.
func WithBody() Option {
	return func(m *LogMailer) {
		m.withBody = true
	}
}

// NewLogMailer creates a LogMailer. A nil logger means slog.Default().
func NewLogMailer(logger *slog.Logger, options ...Option) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &LogMailer{logger: logger}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *LogMailer) Send(ctx context.Context, msg simplepublish.MailMessage) (*simplepublish.MailDelivery, error) {
	if _, err := netmail.ParseAddress(msg.To); err != nil {
		return nil, errors.New("invalid recipient address")
	}
	if msg.Subject == "" {
		return nil, errors.New("subject is required")
	}

	delivery := &simplepublish.MailDelivery{
		ID:         uuid.NewString(),
		AcceptedAt: time.Now().UTC(),
	}

	attrs := []any{"id", delivery.ID, "to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.HTMLBody)}
	if m.withBody {
		attrs = append(attrs, "body", msg.HTMLBody)
	}
	m.logger.InfoContext(ctx, "mail accepted", attrs...)
	return delivery, nil
}

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/helixir/peer-review-service/internal/domain"
)

// MailerConfig holds SMTP delivery configuration.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Sender is the From header, e.g. "Peer Review <no-reply@example.org>".
	Sender  string
	Timeout time.Duration
}

// Mailer delivers lifecycle events as email over SMTP with mandatory
// STARTTLS.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// Compile-time interface verification.
var _ Channel = (*Mailer)(nil)

// NewMailer creates an SMTP mail channel.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, domain.NewValidationError("host", "SMTP host is required")
	}
	if cfg.Sender == "" {
		return nil, domain.NewValidationError("sender", "SMTP sender is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.Timeout = cfg.Timeout
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}

	return &Mailer{dialer: dialer, sender: cfg.Sender}, nil
}

// Name implements Channel.
func (m *Mailer) Name() string { return "email" }

// Send delivers the event to its recipients. Events without recipients are
// skipped silently; they are stream-only events.
func (m *Mailer) Send(ctx context.Context, event *domain.LifecycleEvent) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", event.Recipients...)
	msg.SetHeader("Subject", subjectFor(event))
	msg.SetBody(bodyContentType(event), renderBody(event))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail for event %s: %w", event.EventID, err)
	}
	return nil
}

// subjectFor returns the event's subject, falling back to a generic one
// derived from the event type.
func subjectFor(event *domain.LifecycleEvent) string {
	if event.Subject != "" {
		return event.Subject
	}
	return fmt.Sprintf("[Peer Review] %s", event.EventType)
}

// bodyContentType returns the event's content type, defaulting to plain text.
func bodyContentType(event *domain.LifecycleEvent) string {
	if event.ContentType != "" {
		return event.ContentType
	}
	return "text/plain"
}

// renderBody produces the message body from the event payload.
func renderBody(event *domain.LifecycleEvent) string {
	return fmt.Sprintf(
		"Event: %s\nArticle: %s\nOccurred: %s\n\n%s\n",
		event.EventType,
		event.ArticleID,
		event.OccurredAt.Format(time.RFC3339),
		string(event.Payload),
	)
}

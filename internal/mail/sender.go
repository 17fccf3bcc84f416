package mail

import (
	"context"
	"fmt"
	"log"

	gomail "github.com/wneessen/go-mail"

	"github.com/pasticeri/api/internal/config"
)

// Sender delivers a rendered HTML email to a single recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to string, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("set to %q: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender writes mail to the process log instead of sending it.
type LogSender struct {
	logf func(format string, args ...interface{})
}

func NewLogSender() *LogSender {
	return &LogSender{logf: log.Printf}
}

func (s *LogSender) Send(_ context.Context, to string, msg Message) error {
	s.logf("INFO: mail to=%s subject=%q bytes=%d (smtp disabled)", to, msg.Subject, len(msg.HTML))
	return nil
}

// NewSender returns an SMTPSender when SMTP is configured and a LogSender otherwise.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(), nil
	}
	return NewSMTPSender(cfg)
}

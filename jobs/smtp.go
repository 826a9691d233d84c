package jobs

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	mail "github.com/go-mail/mail"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	// TLSMode is "auto", "starttls", "ssl" or "none".
	TLSMode string
}

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers msg as multipart/alternative when both bodies are present.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := s.message(msg)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		s.logger.Error("smtp send failed", slog.String("host", s.cfg.Host), slog.Any("error", err))
		return fmt.Errorf("jobs: smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) message(msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

var _ Sender = (*SMTPSender)(nil)

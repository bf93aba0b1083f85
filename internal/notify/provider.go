package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/smallbiznis/registra/internal/config"
)

// Provider delivers a rendered message.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type smtpProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTP returns the SMTP delivery provider.
func NewSMTP(cfg config.Config) Provider {
	return &smtpProvider{
		host:     cfg.Email.SMTPHost,
		port:     cfg.Email.SMTPPort,
		username: cfg.Email.SMTPUsername,
		password: cfg.Email.SMTPPassword,
		from:     cfg.Email.SMTPFrom,
	}
}

func (p *smtpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.from, to, msg)
}

// NoOpProvider drops messages; used when SMTP is not configured.
type NoOpProvider struct{}

func (NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

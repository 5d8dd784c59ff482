package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pawsentry/pawsentry/internal/config"
	"go.uber.org/zap"
)

// SMTPProvider delivers alert emails over plain SMTP with optional auth.
type SMTPProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *zap.Logger
}

func NewSMTPProvider(cfg config.EmailConfig, log *zap.Logger) *SMTPProvider {
	return &SMTPProvider{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		log:      log.Named("providers.email"),
	}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("email: recipient address is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", p.from)
	fmt.Fprintf(&body, "To: %s\r\n", msg.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := smtp.SendMail(addr, auth, p.from, []string{msg.To}, []byte(body.String())); err != nil {
		return fmt.Errorf("email: send via %s: %w", addr, err)
	}

	p.log.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

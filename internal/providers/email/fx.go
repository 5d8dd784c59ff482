package email

import (
	"github.com/pawsentry/pawsentry/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig picks the SMTP provider when email delivery is enabled and
// the no-op provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.Email.Enabled {
		return NoOpProvider{}
	}
	return NewSMTPProvider(cfg.Email, log)
}

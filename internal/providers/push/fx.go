package push

import (
	"github.com/pawsentry/pawsentry/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig picks the webhook provider when push delivery is enabled
// and the no-op provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.Push.Enabled {
		return NoOpProvider{}
	}
	return NewWebhookProvider(cfg.Push, log)
}

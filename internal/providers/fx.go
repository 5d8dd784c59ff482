package providers

import (
	"github.com/pawsentry/pawsentry/internal/providers/email"
	"github.com/pawsentry/pawsentry/internal/providers/push"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(email.NewFromConfig),
	fx.Provide(push.NewFromConfig),
)

package alertrule

import (
	"github.com/pawsentry/pawsentry/internal/alertrule/repository"
	"github.com/pawsentry/pawsentry/internal/alertrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alertrule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

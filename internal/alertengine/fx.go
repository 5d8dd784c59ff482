package alertengine

import (
	"github.com/pawsentry/pawsentry/internal/alertengine/repository"
	"github.com/pawsentry/pawsentry/internal/alertengine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alertengine.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

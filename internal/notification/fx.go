package notification

import (
	"github.com/pawsentry/pawsentry/internal/notification/repository"
	"github.com/pawsentry/pawsentry/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideSettings),
	fx.Provide(service.New),
)

package notification

import (
	"github.com/serenatalabs/serenata/internal/notification/repository"
	"github.com/serenatalabs/serenata/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)

package webhook

import (
	"github.com/serenatalabs/serenata/internal/webhook/matcher"
	"github.com/serenatalabs/serenata/internal/webhook/repository"
	"github.com/serenatalabs/serenata/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(
		matcher.New,
		repository.Provide,
		service.NewService,
	),
)

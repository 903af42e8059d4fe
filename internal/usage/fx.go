package usage

import (
	"github.com/smallbiznis/meterbill/internal/usage/repository"
	"github.com/smallbiznis/meterbill/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.NewSamplesProvider),
	fx.Provide(service.NewService),
)

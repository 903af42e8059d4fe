package pricingplan

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/meterbill/internal/config"
	"github.com/smallbiznis/meterbill/internal/pricingplan/cache"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"github.com/smallbiznis/meterbill/internal/pricingplan/repository"
	"github.com/smallbiznis/meterbill/internal/pricingplan/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("pricingplan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(provideService),
	fx.Provide(func(svc pricingplandomain.Service) pricingplandomain.Lookup { return svc }),
)

type cacheParams struct {
	fx.In

	Inner  *service.Service
	Redis  redis.UniversalClient `optional:"true"`
	Config *config.BillingConfigHolder
	Log    *zap.Logger
}

func provideService(p cacheParams) pricingplandomain.Service {
	return cache.NewLookup(p.Inner, p.Redis, p.Config, p.Log)
}

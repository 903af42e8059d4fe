package seed

import (
	"context"

	"github.com/smallbiznis/meterbill/internal/config"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, plans pricingplandomain.Service, tenants tenantdomain.Service, log *zap.Logger) error {
		if cfg.SeedFile == "" {
			return nil
		}
		file, err := Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		return Apply(context.Background(), file, plans, tenants, log)
	}),
)

package billingdashboard

import (
	"github.com/smallbiznis/meterbill/internal/billingdashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingdashboard.service",
	fx.Provide(service.NewBuilder),
	fx.Provide(service.NewService),
)

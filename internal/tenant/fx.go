package tenant

import (
	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"github.com/smallbiznis/meterbill/internal/tenant/repository"
	"github.com/smallbiznis/meterbill/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc tenantdomain.Service) billingcycledomain.TenantHistoryProvider { return svc }),
)

package service

import (
	"context"
	"strings"

	billingdashboarddomain "github.com/smallbiznis/meterbill/internal/billingdashboard/domain"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Plans   pricingplandomain.Lookup
	Tenants tenantdomain.Service
	Builder billingdashboarddomain.Builder
}

type Service struct {
	log     *zap.Logger
	plans   pricingplandomain.Lookup
	tenants tenantdomain.Service
	builder billingdashboarddomain.Builder
}

func NewService(p Params) billingdashboarddomain.Service {
	return &Service{
		log:     p.Log.Named("billingdashboard.service"),
		plans:   p.Plans,
		tenants: p.Tenants,
		builder: p.Builder,
	}
}

func (s *Service) GetDashboard(ctx context.Context, req billingdashboarddomain.DashboardRequest) (billingdashboarddomain.DashboardResponse, error) {
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || req.PeriodEnd.Before(req.PeriodStart) {
		return billingdashboarddomain.DashboardResponse{}, billingdashboarddomain.ErrInvalidPeriod
	}

	plan, err := s.plans.GetPlan(ctx, strings.TrimSpace(req.PlanID))
	if err != nil {
		return billingdashboarddomain.DashboardResponse{}, err
	}

	tenant, err := s.tenants.Get(ctx, req.TenantID)
	if err != nil {
		return billingdashboarddomain.DashboardResponse{}, err
	}

	summary, err := s.builder.BuildSummary(ctx, billingdashboarddomain.SummaryRequest{
		TenantID:    tenant.ID,
		Plan:        plan,
		PeriodStart: req.PeriodStart.UTC(),
		PeriodEnd:   req.PeriodEnd.UTC(),
	})
	if err != nil {
		return billingdashboarddomain.DashboardResponse{}, err
	}

	return billingdashboarddomain.DashboardResponse{
		Summary: billingdashboarddomain.DashboardSummary{
			TotalByCurrency:    summary.TotalsByCurrency,
			TotalMeteringUnits: len(summary.LineItems),
		},
		MeteringUnitBillings: summary.LineItems,
		PricingPlanInfo: billingdashboarddomain.PricingPlanInfo{
			PlanID:      plan.ID,
			DisplayName: plan.DisplayName,
			Description: plan.Description,
		},
	}, nil
}

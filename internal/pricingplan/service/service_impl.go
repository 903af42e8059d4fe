package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/smallbiznis/meterbill/internal/config"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Repo   pricingplandomain.Repository
	Config *config.BillingConfigHolder
}

type Service struct {
	log    *zap.Logger
	repo   pricingplandomain.Repository
	config *config.BillingConfigHolder
}

func New(p Params) *Service {
	return &Service{
		log:    p.Log.Named("pricingplan.service"),
		repo:   p.Repo,
		config: p.Config,
	}
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*pricingplandomain.PricingPlan, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, pricingplandomain.ErrInvalidPlanID
	}

	record, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, pricingplandomain.ErrPlanNotFound
	}

	plan, err := DecodePlan(*record, s.config.Get().StrictUnitTypes)
	if err != nil {
		s.log.Warn("stored plan rejected", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// SavePlan validates the plan the same way lookups decode it, then stores it.
func (s *Service) SavePlan(ctx context.Context, req pricingplandomain.SavePlanRequest) (*pricingplandomain.PricingPlan, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, pricingplandomain.ErrInvalidPlanID
	}

	plan, err := buildPlan(id, req.DisplayName, req.Description, req.Menus, s.config.Get().StrictUnitTypes)
	if err != nil {
		return nil, err
	}

	menus, err := json.Marshal(req.Menus)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &pricingplandomain.PlanRecord{
		ID:          id,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Menus:       datatypes.JSON(menus),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("plan saved", zap.String("plan_id", id), zap.Int("menus", len(plan.Menus)))
	return plan, nil
}

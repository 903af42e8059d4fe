package domain

import (
	"context"
	"errors"
)

// Lookup resolves a pricing plan by id.
type Lookup interface {
	GetPlan(ctx context.Context, planID string) (*PricingPlan, error)
}

var (
	ErrInvalidPlanID    = errors.New("invalid_plan_id")
	ErrPlanNotFound     = errors.New("plan_not_found")
	ErrInvalidReference = errors.New("invalid_reference")
	ErrInvalidPlan      = errors.New("invalid_plan")
)

type Service interface {
	Lookup
	SavePlan(ctx context.Context, req SavePlanRequest) (*PricingPlan, error)
}

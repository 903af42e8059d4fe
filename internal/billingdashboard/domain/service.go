package domain

import (
	"context"
	"errors"
)

// Builder prices every unit of a plan for one tenant and period.
type Builder interface {
	BuildSummary(ctx context.Context, req SummaryRequest) (BillingSummary, error)
}

type Service interface {
	GetDashboard(ctx context.Context, req DashboardRequest) (DashboardResponse, error)
}

var (
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidPlan   = errors.New("invalid_plan")
)

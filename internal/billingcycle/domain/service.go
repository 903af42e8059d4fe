package domain

import (
	"context"
	"time"

	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

type TenantHistoryProvider interface {
	GetTenantHistory(ctx context.Context, tenantID string) (TenantHistory, error)
}

// Segmenter slices a tenant's plan history into recurrence periods.
type Segmenter interface {
	SegmentPeriods(ctx context.Context, history []PlanHistoryEntry, currentPeriodEnd *time.Time, lookup pricingplandomain.Lookup) ([]PlanPeriodSegment, error)
	ListPlanPeriods(ctx context.Context, tenantID string) ([]PlanPeriodSegment, error)
}

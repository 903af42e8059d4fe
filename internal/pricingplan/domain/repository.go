package domain

import (
	"context"
)

type Repository interface {
	FindByID(ctx context.Context, planID string) (*PlanRecord, error)
	Upsert(ctx context.Context, record *PlanRecord) error
}

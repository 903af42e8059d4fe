package repository

import (
	"context"

	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"github.com/smallbiznis/meterbill/pkg/repository"
	"gorm.io/gorm"
)

var planUpdateColumns = []string{"display_name", "description", "menus", "updated_at"}

type repo struct {
	plans repository.Repository[pricingplandomain.PlanRecord]
}

func Provide(db *gorm.DB) pricingplandomain.Repository {
	return &repo{plans: repository.ProvideStore[pricingplandomain.PlanRecord](db)}
}

func (r *repo) FindByID(ctx context.Context, planID string) (*pricingplandomain.PlanRecord, error) {
	return r.plans.FindOne(ctx, &pricingplandomain.PlanRecord{ID: planID})
}

// Upsert keeps created_at of an existing plan.
func (r *repo) Upsert(ctx context.Context, record *pricingplandomain.PlanRecord) error {
	return r.plans.Upsert(ctx, record, []string{"id"}, planUpdateColumns)
}

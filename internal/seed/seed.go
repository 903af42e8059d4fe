package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	"go.uber.org/zap"
)

// File is the bootstrap data applied by Apply. Plans use the same shape as
// PUT /plans/:plan_id.
type File struct {
	Plans   []pricingplandomain.SavePlanRequest `json:"plans"`
	Tenants []Tenant                            `json:"tenants"`
}

type Tenant struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	CurrentPlanPeriodEnd *time.Time    `json:"current_plan_period_end,omitempty"`
	History              []PlanHistory `json:"plan_history"`
	Users                []User        `json:"users"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type PlanHistory struct {
	PlanID    string    `json:"plan_id"`
	AppliedAt time.Time `json:"applied_at"`
	TaxRateID *string   `json:"tax_rate_id,omitempty"`
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return file, nil
}

// Apply upserts every plan and creates tenants that do not exist yet.
// History is only appended for newly created tenants so reruns are no-ops;
// tenant users are upserted on every run.
func Apply(ctx context.Context, file File, plans pricingplandomain.Service, tenants tenantdomain.Service, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	for _, plan := range file.Plans {
		if _, err := plans.SavePlan(ctx, plan); err != nil {
			return fmt.Errorf("seed plan %q: %w", plan.ID, err)
		}
	}

	for _, tenant := range file.Tenants {
		_, err := tenants.Create(ctx, tenantdomain.CreateTenantRequest{
			ID:                   tenant.ID,
			Name:                 tenant.Name,
			CurrentPlanPeriodEnd: tenant.CurrentPlanPeriodEnd,
		})
		created := true
		if errors.Is(err, tenantdomain.ErrTenantExists) {
			log.Debug("tenant already seeded", zap.String("tenant_id", tenant.ID))
			created = false
		} else if err != nil {
			return fmt.Errorf("seed tenant %q: %w", tenant.ID, err)
		}

		for _, user := range tenant.Users {
			if _, err := tenants.UpsertUser(ctx, tenantdomain.UpsertUserRequest{
				TenantID:    tenant.ID,
				UserID:      user.ID,
				Email:       user.Email,
				DisplayName: user.DisplayName,
			}); err != nil {
				return fmt.Errorf("seed tenant %q user %q: %w", tenant.ID, user.ID, err)
			}
		}

		if !created {
			continue
		}
		for _, entry := range tenant.History {
			if _, err := tenants.AppendPlanHistory(ctx, tenantdomain.AppendPlanHistoryRequest{
				TenantID:  tenant.ID,
				PlanID:    entry.PlanID,
				AppliedAt: entry.AppliedAt,
				TaxRateID: entry.TaxRateID,
			}); err != nil {
				return fmt.Errorf("seed tenant %q history: %w", tenant.ID, err)
			}
		}
	}

	log.Info("seed applied",
		zap.Int("plans", len(file.Plans)),
		zap.Int("tenants", len(file.Tenants)),
	)
	return nil
}

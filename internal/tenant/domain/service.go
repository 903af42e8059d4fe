package domain

import (
	"context"
	"errors"
	"time"

	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
)

type CreateTenantRequest struct {
	ID                   string
	Name                 string
	CurrentPlanPeriodEnd *time.Time
}

type AppendPlanHistoryRequest struct {
	TenantID  string
	PlanID    string
	AppliedAt time.Time
	TaxRateID *string
	// CurrentPlanPeriodEnd, when set, replaces the tenant's current period end.
	CurrentPlanPeriodEnd *time.Time
}

type UpsertUserRequest struct {
	TenantID    string
	UserID      string
	Email       string
	DisplayName string
}

type Service interface {
	billingcycledomain.TenantHistoryProvider

	Create(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	Get(ctx context.Context, tenantID string) (Tenant, error)
	AppendPlanHistory(ctx context.Context, req AppendPlanHistoryRequest) (PlanHistory, error)
	ListUsers(ctx context.Context, tenantID string) ([]User, error)
	UpsertUser(ctx context.Context, req UpsertUserRequest) (User, error)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidPlanID    = errors.New("invalid_plan_id")
	ErrInvalidAppliedAt = errors.New("invalid_applied_at")
	ErrTenantNotFound   = errors.New("tenant_not_found")
	ErrTenantExists     = errors.New("tenant_exists")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidEmail     = errors.New("invalid_email")
)

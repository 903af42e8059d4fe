package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Tenant struct {
	ID                   string     `gorm:"primaryKey;type:text" json:"id"`
	Name                 string     `gorm:"type:text;not null" json:"name"`
	CurrentPlanPeriodEnd *time.Time `json:"current_plan_period_end,omitempty"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"not null" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// PlanHistory is an append-only log of plan changes per tenant.
type PlanHistory struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  string       `gorm:"type:text;not null;index:ix_tenant_plan_histories_tenant,priority:1" json:"tenant_id"`
	PlanID    string       `gorm:"type:text;not null" json:"plan_id"`
	AppliedAt time.Time    `gorm:"not null;index:ix_tenant_plan_histories_tenant,priority:2" json:"applied_at"`
	TaxRateID *string      `gorm:"type:text" json:"tax_rate_id,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (PlanHistory) TableName() string { return "tenant_plan_histories" }

// User is a member of a tenant as known to the user directory.
type User struct {
	TenantID    string    `gorm:"primaryKey;type:text" json:"tenant_id"`
	UserID      string    `gorm:"primaryKey;type:text" json:"user_id"`
	Email       string    `gorm:"type:text;not null" json:"email"`
	DisplayName string    `gorm:"type:text" json:"display_name,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "tenant_users" }

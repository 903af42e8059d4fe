package domain

import "time"

// PlanHistoryEntry records a plan taking effect for a tenant.
type PlanHistoryEntry struct {
	PlanID    string    `json:"plan_id"`
	AppliedAt time.Time `json:"applied_at"`
	TaxRateID *string   `json:"tax_rate_id,omitempty"`
}

// TenantHistory is the plan history of one tenant. CurrentPeriodEnd is the
// end of the tenant's current billing period when one is known.
type TenantHistory struct {
	History          []PlanHistoryEntry
	CurrentPeriodEnd *time.Time
}

// PlanPeriodSegment is one recurrence period governed by a single plan.
// Start and End are inclusive, at one-second resolution.
type PlanPeriodSegment struct {
	Label  string    `json:"label"`
	PlanID string    `json:"plan_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

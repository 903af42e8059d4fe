package domain

import (
	"time"

	"github.com/shopspring/decimal"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

// BillingLineItem is the billed usage of one unit within one menu.
type BillingLineItem struct {
	UnitName     string          `json:"metering_unit_name"`
	MenuName     string          `json:"function_menu_name"`
	PeriodCount  decimal.Decimal `json:"period_count"`
	Currency     string          `json:"currency"`
	PeriodAmount decimal.Decimal `json:"period_amount"`
	DisplayName  string          `json:"pricing_unit_display_name"`
}

type CurrencyTotal struct {
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// BillingSummary lists line items in plan order. TotalsByCurrency is
// sorted by currency code.
type BillingSummary struct {
	LineItems        []BillingLineItem `json:"metering_unit_billings"`
	TotalsByCurrency []CurrencyTotal   `json:"total_by_currency"`
}

type SummaryRequest struct {
	TenantID    string
	Plan        *pricingplandomain.PricingPlan
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type DashboardRequest struct {
	TenantID    string
	PlanID      string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type DashboardSummary struct {
	TotalByCurrency    []CurrencyTotal `json:"total_by_currency"`
	TotalMeteringUnits int             `json:"total_metering_units"`
}

type PricingPlanInfo struct {
	PlanID      string `json:"plan_id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type DashboardResponse struct {
	Summary              DashboardSummary  `json:"summary"`
	MeteringUnitBillings []BillingLineItem `json:"metering_unit_billings"`
	PricingPlanInfo      PricingPlanInfo   `json:"pricing_plan_info"`
}

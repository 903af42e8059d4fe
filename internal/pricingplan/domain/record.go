package domain

import (
	"encoding/json"
	"time"

	pricetierdomain "github.com/smallbiznis/meterbill/internal/pricetier/domain"
	"gorm.io/datatypes"
)

// PlanRecord is the stored form of a pricing plan. Menus keep the JSON
// shape used by the pricing platform and are decoded on lookup.
type PlanRecord struct {
	ID          string         `json:"id" gorm:"primaryKey;type:text"`
	DisplayName string         `json:"display_name" gorm:"type:text;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Menus       datatypes.JSON `json:"menus" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null"`
}

func (PlanRecord) TableName() string { return "pricing_plans" }

type MenuRecord struct {
	DisplayName string       `json:"display_name"`
	Units       []UnitRecord `json:"units"`
}

type UnitRecord struct {
	MeteringUnitName  string                    `json:"metering_unit_name"`
	Type              string                    `json:"type"`
	UnitAmount        json.Number               `json:"unit_amount"`
	Currency          string                    `json:"currency"`
	DisplayName       string                    `json:"display_name"`
	AggregateUsage    string                    `json:"aggregate_usage"`
	RecurringInterval string                    `json:"recurring_interval"`
	Tiers             []pricetierdomain.RawTier `json:"tiers"`
}

type SavePlanRequest struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description"`
	Menus       []MenuRecord `json:"menus"`
}

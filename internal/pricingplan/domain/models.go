package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	pricetierdomain "github.com/smallbiznis/meterbill/internal/pricetier/domain"
)

// UnitType selects the pricing model of a metering unit.
type UnitType string

const (
	UnitTypeFixed       UnitType = "fixed"
	UnitTypeUsage       UnitType = "usage"
	UnitTypeTiered      UnitType = "tiered"
	UnitTypeTieredUsage UnitType = "tiered_usage"
	// UnitTypeUnknown is priced like UnitTypeUsage.
	UnitTypeUnknown UnitType = "unknown"
)

// ParseUnitType maps a stored type name onto the closed set of unit types.
// An empty value means usage pricing. The second result is false when the
// value is not a recognised type name.
func ParseUnitType(raw string) (UnitType, bool) {
	switch UnitType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", UnitTypeUsage:
		return UnitTypeUsage, true
	case UnitTypeFixed:
		return UnitTypeFixed, true
	case UnitTypeTiered:
		return UnitTypeTiered, true
	case UnitTypeTieredUsage:
		return UnitTypeTieredUsage, true
	default:
		return UnitTypeUnknown, false
	}
}

type AggregateMode string

const (
	AggregateSum AggregateMode = "sum"
	AggregateMax AggregateMode = "max"
)

// ParseAggregateMode defaults to sum for anything other than "max".
func ParseAggregateMode(raw string) AggregateMode {
	if AggregateMode(strings.ToLower(strings.TrimSpace(raw))) == AggregateMax {
		return AggregateMax
	}
	return AggregateSum
}

type Recurrence string

const (
	RecurrenceMonth Recurrence = "month"
	RecurrenceYear  Recurrence = "year"
)

type MeteringUnit struct {
	Name              string                 `json:"metering_unit_name"`
	Type              UnitType               `json:"type"`
	UnitPrice         decimal.Decimal        `json:"unit_amount"`
	Currency          string                 `json:"currency"`
	DisplayName       string                 `json:"display_name"`
	AggregateMode     AggregateMode          `json:"aggregate_usage"`
	RecurringInterval string                 `json:"recurring_interval,omitempty"`
	Tiers             []pricetierdomain.Tier `json:"tiers,omitempty"`
}

type PricingMenu struct {
	DisplayName string         `json:"display_name"`
	Units       []MeteringUnit `json:"units"`
}

type PricingPlan struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	Menus       []PricingMenu `json:"menus"`
}

// Recurrence is yearly when any unit of the plan recurs yearly.
func (p PricingPlan) Recurrence() Recurrence {
	for _, menu := range p.Menus {
		for _, unit := range menu.Units {
			if strings.EqualFold(strings.TrimSpace(unit.RecurringInterval), string(RecurrenceYear)) {
				return RecurrenceYear
			}
		}
	}
	return RecurrenceMonth
}

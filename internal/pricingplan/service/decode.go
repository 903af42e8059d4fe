package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	pricetierservice "github.com/smallbiznis/meterbill/internal/pricetier/service"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

// DecodePlan converts a stored plan into typed menus and units. Unknown
// unit types become UnitTypeUnknown unless strict is set, in which case
// they are rejected with ErrInvalidReference.
func DecodePlan(record pricingplandomain.PlanRecord, strict bool) (*pricingplandomain.PricingPlan, error) {
	var menus []pricingplandomain.MenuRecord
	if len(record.Menus) > 0 {
		if err := json.Unmarshal(record.Menus, &menus); err != nil {
			return nil, fmt.Errorf("%w: menus: %v", pricingplandomain.ErrInvalidPlan, err)
		}
	}
	return buildPlan(record.ID, record.DisplayName, record.Description, menus, strict)
}

func buildPlan(id, displayName, description string, menus []pricingplandomain.MenuRecord, strict bool) (*pricingplandomain.PricingPlan, error) {
	plan := &pricingplandomain.PricingPlan{
		ID:          id,
		DisplayName: displayName,
		Description: description,
		Menus:       make([]pricingplandomain.PricingMenu, 0, len(menus)),
	}

	for mi, menu := range menus {
		units := make([]pricingplandomain.MeteringUnit, 0, len(menu.Units))
		for ui, raw := range menu.Units {
			unit, err := decodeUnit(raw, strict)
			if err != nil {
				return nil, fmt.Errorf("menu %d unit %d: %w", mi, ui, err)
			}
			units = append(units, unit)
		}
		plan.Menus = append(plan.Menus, pricingplandomain.PricingMenu{
			DisplayName: menu.DisplayName,
			Units:       units,
		})
	}
	return plan, nil
}

func decodeUnit(raw pricingplandomain.UnitRecord, strict bool) (pricingplandomain.MeteringUnit, error) {
	name := strings.TrimSpace(raw.MeteringUnitName)
	if name == "" {
		return pricingplandomain.MeteringUnit{}, fmt.Errorf("%w: metering_unit_name is empty", pricingplandomain.ErrInvalidPlan)
	}

	unitType, known := pricingplandomain.ParseUnitType(raw.Type)
	if !known && strict {
		return pricingplandomain.MeteringUnit{}, fmt.Errorf("%w: unit type %q", pricingplandomain.ErrInvalidReference, raw.Type)
	}

	price := decimal.Zero
	if s := strings.TrimSpace(raw.UnitAmount.String()); s != "" {
		parsed, err := decimal.NewFromString(s)
		if err != nil || parsed.IsNegative() {
			return pricingplandomain.MeteringUnit{}, fmt.Errorf("%w: unit_amount %q", pricingplandomain.ErrInvalidPlan, s)
		}
		price = parsed
	}

	tiers, err := pricetierservice.ParseTiers(raw.Tiers)
	if err != nil {
		return pricingplandomain.MeteringUnit{}, err
	}

	return pricingplandomain.MeteringUnit{
		Name:              name,
		Type:              unitType,
		UnitPrice:         price,
		Currency:          raw.Currency,
		DisplayName:       raw.DisplayName,
		AggregateMode:     pricingplandomain.ParseAggregateMode(raw.AggregateUsage),
		RecurringInterval: strings.ToLower(strings.TrimSpace(raw.RecurringInterval)),
		Tiers:             tiers,
	}, nil
}

package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	pricetierdomain "github.com/smallbiznis/meterbill/internal/pricetier/domain"
)

var errNegativeAmount = errors.New("negative amount")

// ParseTiers validates raw tiers and converts them into a tier table.
// Tiers must already be ordered by ascending bound with at most one
// unbounded tier, placed last.
func ParseTiers(raw []pricetierdomain.RawTier) ([]pricetierdomain.Tier, error) {
	tiers := make([]pricetierdomain.Tier, 0, len(raw))
	for i, item := range raw {
		tier, err := parseTier(item)
		if err != nil {
			return nil, pricetierdomain.NewValidationError(i, err)
		}

		if i > 0 {
			prev := tiers[i-1]
			if prev.Unbounded {
				return nil, pricetierdomain.NewValidationError(i-1, pricetierdomain.ErrUnboundedNotLast)
			}
			if !tier.Unbounded && tier.UpperBound <= prev.UpperBound {
				return nil, pricetierdomain.NewValidationError(i, pricetierdomain.ErrBoundsNotAscending)
			}
		}

		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func parseTier(item pricetierdomain.RawTier) (pricetierdomain.Tier, error) {
	var tier pricetierdomain.Tier

	if item.Inf {
		tier.Unbounded = true
	} else {
		bound, err := decimal.NewFromString(strings.TrimSpace(item.UpTo.String()))
		if err != nil || bound.IsNegative() || !bound.IsInteger() {
			return tier, pricetierdomain.ErrInvalidUpperBound
		}
		tier.UpperBound = bound.IntPart()
	}

	flat, err := parseAmount(item.FlatAmount)
	if err != nil {
		return tier, pricetierdomain.ErrInvalidFlatAmount
	}
	unit, err := parseAmount(item.UnitAmount)
	if err != nil {
		return tier, pricetierdomain.ErrInvalidUnitAmount
	}

	tier.FlatAmount = flat
	tier.UnitPrice = unit
	return tier, nil
}

func parseAmount(value json.Number) (decimal.Decimal, error) {
	raw := strings.TrimSpace(value.String())
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errNegativeAmount
	}
	return amount, nil
}

package service

import (
	"github.com/shopspring/decimal"
	pricetierdomain "github.com/smallbiznis/meterbill/internal/pricetier/domain"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	ratingdomain "github.com/smallbiznis/meterbill/internal/rating/domain"
)

type Calculator struct{}

func NewCalculator() ratingdomain.Calculator {
	return Calculator{}
}

func (Calculator) ValidateCount(count decimal.Decimal) error {
	if count.IsNegative() {
		return ratingdomain.ErrInvalidQuantity
	}
	return nil
}

// ComputeAmount returns the amount owed for count units. Counts are
// expected to be validated; the calculator itself never fails.
func (Calculator) ComputeAmount(count decimal.Decimal, unit pricingplandomain.MeteringUnit) decimal.Decimal {
	switch unit.Type {
	case pricingplandomain.UnitTypeFixed:
		return unit.UnitPrice
	case pricingplandomain.UnitTypeUsage, pricingplandomain.UnitTypeUnknown:
		return count.Mul(unit.UnitPrice)
	case pricingplandomain.UnitTypeTiered:
		return volumeAmount(count, unit.Tiers)
	case pricingplandomain.UnitTypeTieredUsage:
		return graduatedAmount(count, unit.Tiers)
	default:
		return count.Mul(unit.UnitPrice)
	}
}

// volumeAmount prices the whole count at the rate of the tier it lands in.
// Counts above the last bounded tier use the last tier.
func volumeAmount(count decimal.Decimal, tiers []pricetierdomain.Tier) decimal.Decimal {
	if len(tiers) == 0 {
		return decimal.Zero
	}

	selected := tiers[len(tiers)-1]
	for _, tier := range tiers {
		if tier.Covers(count) {
			selected = tier
			break
		}
	}

	return selected.FlatAmount.Add(count.Mul(selected.UnitPrice))
}

// graduatedAmount prices each tier's slice of the count at that tier's rate.
func graduatedAmount(count decimal.Decimal, tiers []pricetierdomain.Tier) decimal.Decimal {
	total := decimal.Zero
	prev := decimal.Zero

	for _, tier := range tiers {
		if count.LessThanOrEqual(prev) {
			break
		}

		var portion decimal.Decimal
		if tier.Unbounded {
			portion = count.Sub(prev)
		} else {
			portion = decimal.Min(count, tier.Bound()).Sub(prev)
		}

		total = total.Add(tier.FlatAmount).Add(portion.Mul(tier.UnitPrice))
		if tier.Unbounded {
			break
		}
		prev = tier.Bound()
	}

	return total
}

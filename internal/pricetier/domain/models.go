package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Tier is one step of a tier table. A tier covers the range
// (previous.UpperBound, UpperBound]; the unbounded tier covers everything
// above the previous bound.
type Tier struct {
	UpperBound int64           `json:"up_to"`
	Unbounded  bool            `json:"inf"`
	FlatAmount decimal.Decimal `json:"flat_amount"`
	UnitPrice  decimal.Decimal `json:"unit_amount"`
}

// Covers reports whether count falls at or below the tier bound.
func (t Tier) Covers(count decimal.Decimal) bool {
	if t.Unbounded {
		return true
	}
	return count.LessThanOrEqual(decimal.NewFromInt(t.UpperBound))
}

// Bound returns the upper bound as a decimal. Meaningless for the unbounded tier.
func (t Tier) Bound() decimal.Decimal {
	return decimal.NewFromInt(t.UpperBound)
}

// RawTier is the tier shape stored alongside plans by the pricing platform.
type RawTier struct {
	UpTo       json.Number `json:"up_to"`
	Inf        bool        `json:"inf"`
	FlatAmount json.Number `json:"flat_amount"`
	UnitAmount json.Number `json:"unit_amount"`
}

package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

// Calculator prices a usage count for a single metering unit.
type Calculator interface {
	ComputeAmount(count decimal.Decimal, unit pricingplandomain.MeteringUnit) decimal.Decimal
	ValidateCount(count decimal.Decimal) error
}

var ErrInvalidQuantity = errors.New("invalid_quantity")

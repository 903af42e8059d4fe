package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/meterbill/internal/cache"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
)

// ResolveUsage returns the aggregated count of a unit over [Start, End].
//
// A unit name already present in counts is returned without touching the
// provider. Sum results are stored in counts, max results are not, so a
// max-aggregated unit is refetched every time it is resolved.
func ResolveUsage(
	ctx context.Context,
	provider usagedomain.SamplesProvider,
	counts cache.UsageCountCache,
	req usagedomain.ResolveRequest,
) (decimal.Decimal, error) {
	if cached, ok := counts.Get(req.UnitName); ok {
		return cached, nil
	}

	samples, err := provider.ListSamples(ctx, req.TenantID, req.UnitName, req.Start, req.End)
	if err != nil {
		return decimal.Zero, err
	}

	if req.Mode == pricingplandomain.AggregateMax {
		return maxCount(samples), nil
	}

	total := sumCount(samples)
	counts.Set(req.UnitName, total)
	return total, nil
}

func sumCount(samples []usagedomain.UsageSample) decimal.Decimal {
	total := decimal.Zero
	for _, sample := range samples {
		total = total.Add(sample.Count)
	}
	return total
}

func maxCount(samples []usagedomain.UsageSample) decimal.Decimal {
	if len(samples) == 0 {
		return decimal.Zero
	}
	peak := samples[0].Count
	for _, sample := range samples[1:] {
		if sample.Count.GreaterThan(peak) {
			peak = sample.Count
		}
	}
	return peak
}

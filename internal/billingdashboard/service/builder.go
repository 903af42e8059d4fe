package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	billingdashboarddomain "github.com/smallbiznis/meterbill/internal/billingdashboard/domain"
	"github.com/smallbiznis/meterbill/internal/cache"
	obsmetrics "github.com/smallbiznis/meterbill/internal/observability/metrics"
	"github.com/smallbiznis/meterbill/internal/observability/tracing"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	ratingdomain "github.com/smallbiznis/meterbill/internal/rating/domain"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
	usageservice "github.com/smallbiznis/meterbill/internal/usage/service"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type BuilderParams struct {
	fx.In

	Log        *zap.Logger
	Samples    usagedomain.SamplesProvider
	Calculator ratingdomain.Calculator
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Builder struct {
	log        *zap.Logger
	samples    usagedomain.SamplesProvider
	calculator ratingdomain.Calculator
	metrics    *obsmetrics.Metrics
}

func NewBuilder(p BuilderParams) billingdashboarddomain.Builder {
	return &Builder{
		log:        p.Log.Named("billingdashboard.builder"),
		samples:    p.Samples,
		calculator: p.Calculator,
		metrics:    p.Metrics,
	}
}

// BuildSummary walks menus and units in plan order. Sum-aggregated counts
// are fetched once per unit name for the whole run; fixed units are never
// fetched and report a zero count.
func (b *Builder) BuildSummary(ctx context.Context, req billingdashboarddomain.SummaryRequest) (summary billingdashboarddomain.BillingSummary, err error) {
	if req.Plan == nil {
		return billingdashboarddomain.BillingSummary{}, billingdashboarddomain.ErrInvalidPlan
	}

	started := time.Now()
	ctx, span := tracing.Tracer("billingdashboard").Start(ctx, "billingdashboard.BuildSummary")
	span.SetAttributes(attribute.String("plan.id", req.Plan.ID))
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "build summary failed")
		}
		span.End()
		b.metrics.RecordSummary(ctx, req.Plan.ID, time.Since(started), err)
	}()

	counts := cache.NewUsageCountCache()
	totals := make(map[string]decimal.Decimal)
	items := make([]billingdashboarddomain.BillingLineItem, 0)

	for _, menu := range req.Plan.Menus {
		for _, unit := range menu.Units {
			count := decimal.Zero
			if unit.Type != pricingplandomain.UnitTypeFixed {
				provider := fetchRecorder{inner: b.samples, metrics: b.metrics, mode: string(unit.AggregateMode)}
				count, err = usageservice.ResolveUsage(ctx, provider, counts, usagedomain.ResolveRequest{
					TenantID: req.TenantID,
					UnitName: unit.Name,
					Mode:     unit.AggregateMode,
					Start:    req.PeriodStart,
					End:      req.PeriodEnd,
				})
				if err != nil {
					return billingdashboarddomain.BillingSummary{}, fmt.Errorf("resolve usage %s: %w", unit.Name, err)
				}
			}
			if err = b.calculator.ValidateCount(count); err != nil {
				return billingdashboarddomain.BillingSummary{}, fmt.Errorf("unit %s: %w", unit.Name, err)
			}

			amount := b.calculator.ComputeAmount(count, unit)
			items = append(items, billingdashboarddomain.BillingLineItem{
				UnitName:     unit.Name,
				MenuName:     menu.DisplayName,
				PeriodCount:  count,
				Currency:     unit.Currency,
				PeriodAmount: amount,
				DisplayName:  unit.DisplayName,
			})
			totals[unit.Currency] = totals[unit.Currency].Add(amount)
		}
	}

	span.SetAttributes(
		attribute.Int("line_items", len(items)),
		attribute.Int("cached_units", counts.Len()),
	)
	return billingdashboarddomain.BillingSummary{
		LineItems:        items,
		TotalsByCurrency: sortedTotals(totals),
	}, nil
}

// fetchRecorder counts provider round trips; cache hits never reach it.
type fetchRecorder struct {
	inner   usagedomain.SamplesProvider
	metrics *obsmetrics.Metrics
	mode    string
}

func (r fetchRecorder) ListSamples(ctx context.Context, tenantID, unitName string, start, end time.Time) ([]usagedomain.UsageSample, error) {
	r.metrics.RecordUsageFetch(ctx, r.mode)
	return r.inner.ListSamples(ctx, tenantID, unitName, start, end)
}

func sortedTotals(totals map[string]decimal.Decimal) []billingdashboarddomain.CurrencyTotal {
	currencies := make([]string, 0, len(totals))
	for currency := range totals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	out := make([]billingdashboarddomain.CurrencyTotal, 0, len(currencies))
	for _, currency := range currencies {
		out = append(out, billingdashboarddomain.CurrencyTotal{
			Currency:    currency,
			TotalAmount: totals[currency],
		})
	}
	return out
}

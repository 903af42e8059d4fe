package service

import (
	"context"
	"sort"
	"strings"
	"time"

	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	"github.com/smallbiznis/meterbill/internal/clock"
	"github.com/smallbiznis/meterbill/internal/config"
	obsmetrics "github.com/smallbiznis/meterbill/internal/observability/metrics"
	"github.com/smallbiznis/meterbill/internal/observability/tracing"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  *config.BillingConfigHolder
	History billingcycledomain.TenantHistoryProvider
	Plans   pricingplandomain.Lookup
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Segmenter struct {
	log     *zap.Logger
	clock   clock.Clock
	config  *config.BillingConfigHolder
	history billingcycledomain.TenantHistoryProvider
	plans   pricingplandomain.Lookup
	metrics *obsmetrics.Metrics
}

func NewSegmenter(p Params) billingcycledomain.Segmenter {
	return &Segmenter{
		log:     p.Log.Named("billingcycle.segmenter"),
		clock:   p.Clock,
		config:  p.Config,
		history: p.History,
		plans:   p.Plans,
		metrics: p.Metrics,
	}
}

// ListPlanPeriods segments the stored plan history of tenantID.
func (s *Segmenter) ListPlanPeriods(ctx context.Context, tenantID string) ([]billingcycledomain.PlanPeriodSegment, error) {
	history, err := s.history.GetTenantHistory(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.SegmentPeriods(ctx, history.History, history.CurrentPeriodEnd, s.plans)
}

// SegmentPeriods slices the intervals between plan changes into month or
// year periods, newest first. Each plan governs from its AppliedAt until
// one second before the next change; the last plan runs until one second
// before currentPeriodEnd, or until now when no period end is known.
func (s *Segmenter) SegmentPeriods(ctx context.Context, history []billingcycledomain.PlanHistoryEntry, currentPeriodEnd *time.Time, lookup pricingplandomain.Lookup) (segments []billingcycledomain.PlanPeriodSegment, err error) {
	ctx, span := tracing.Tracer("billingcycle").Start(ctx, "billingcycle.SegmentPeriods")
	defer func() {
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "segmentation failed")
		}
		span.SetAttributes(attribute.Int("segments", len(segments)))
		span.End()
	}()

	edges := boundaryEdges(history)
	if len(edges) == 0 {
		return []billingcycledomain.PlanPeriodSegment{}, nil
	}

	lastBoundary := s.clock.Now().UTC()
	if currentPeriodEnd != nil {
		lastBoundary = currentPeriodEnd.UTC().Add(-time.Second)
	}

	cfg := s.config.Get()
	loc := cfg.Location()

	segments = make([]billingcycledomain.PlanPeriodSegment, 0, len(edges))
	for i, edge := range edges {
		intervalEnd := lastBoundary
		if i+1 < len(edges) {
			intervalEnd = edges[i+1].AppliedAt.Add(-time.Second)
		}

		plan, err := lookup.GetPlan(ctx, edge.PlanID)
		if err != nil {
			return nil, err
		}
		recurrence := plan.Recurrence()

		sliced := sliceInterval(edge.AppliedAt.In(loc), intervalEnd.In(loc), recurrence)
		for _, period := range sliced {
			segments = append(segments, billingcycledomain.PlanPeriodSegment{
				Label:  label(cfg, period.start, period.end),
				PlanID: edge.PlanID,
				Start:  period.start.UTC(),
				End:    period.end.UTC(),
			})
		}
		s.metrics.RecordSegments(ctx, string(recurrence), len(sliced))
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start.After(segments[j].Start)
	})

	s.log.Debug("plan periods segmented",
		zap.Int("edges", len(edges)),
		zap.Int("segments", len(segments)),
		zap.Time("last_boundary", lastBoundary),
	)
	return segments, nil
}

type period struct {
	start time.Time
	end   time.Time
}

// sliceInterval cuts [start, end] into recurrence periods. A trailing
// one-second period [t, t] is kept so the interval stays covered; only an
// interval that ends before it starts yields nothing.
func sliceInterval(start, end time.Time, recurrence pricingplandomain.Recurrence) []period {
	var out []period
	cursor := start
	for {
		segEnd := addRecurrence(cursor, recurrence).Add(-time.Second)
		if segEnd.After(end) {
			segEnd = end
		}
		if segEnd.Before(cursor) {
			return out
		}
		out = append(out, period{start: cursor, end: segEnd})
		if !segEnd.Before(end) {
			return out
		}
		cursor = segEnd.Add(time.Second)
	}
}

// boundaryEdges drops entries without a plan and orders the rest by AppliedAt.
func boundaryEdges(history []billingcycledomain.PlanHistoryEntry) []billingcycledomain.PlanHistoryEntry {
	edges := make([]billingcycledomain.PlanHistoryEntry, 0, len(history))
	for _, entry := range history {
		if strings.TrimSpace(entry.PlanID) == "" {
			continue
		}
		entry.AppliedAt = entry.AppliedAt.UTC()
		edges = append(edges, entry)
	}
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].AppliedAt.Before(edges[j].AppliedAt)
	})
	return edges
}

func label(cfg config.BillingConfig, start, end time.Time) string {
	return start.Format(cfg.LabelLayout) + cfg.LabelSeparator + end.Format(cfg.LabelLayout)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	billingcycledomain "github.com/smallbiznis/meterbill/internal/billingcycle/domain"
	"github.com/smallbiznis/meterbill/internal/clock"
	"github.com/smallbiznis/meterbill/internal/config"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type planMap map[string]pricingplandomain.PricingPlan

func (m planMap) GetPlan(_ context.Context, planID string) (*pricingplandomain.PricingPlan, error) {
	plan, ok := m[planID]
	if !ok {
		return nil, pricingplandomain.ErrPlanNotFound
	}
	return &plan, nil
}

type historyStub struct {
	history billingcycledomain.TenantHistory
	err     error
}

func (h historyStub) GetTenantHistory(context.Context, string) (billingcycledomain.TenantHistory, error) {
	return h.history, h.err
}

func monthlyPlan(id string) pricingplandomain.PricingPlan {
	return pricingplandomain.PricingPlan{ID: id, Menus: []pricingplandomain.PricingMenu{{
		Units: []pricingplandomain.MeteringUnit{{Name: "api_calls", Type: pricingplandomain.UnitTypeUsage}},
	}}}
}

func yearlyPlan(id string) pricingplandomain.PricingPlan {
	plan := monthlyPlan(id)
	plan.Menus = append(plan.Menus, pricingplandomain.PricingMenu{
		Units: []pricingplandomain.MeteringUnit{{Name: "seats", Type: pricingplandomain.UnitTypeFixed, RecurringInterval: "Year"}},
	})
	return plan
}

var plans = planMap{
	"plan_a": monthlyPlan("plan_a"),
	"plan_b": monthlyPlan("plan_b"),
	"annual": yearlyPlan("annual"),
}

func newTestSegmenter(t *testing.T, now time.Time, cfg config.BillingConfig) *Segmenter {
	t.Helper()
	return NewSegmenter(Params{
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(now),
		Config: config.NewStaticBillingConfigHolder(cfg),
		Plans:  plans,
	}).(*Segmenter)
}

func ptr(t time.Time) *time.Time { return &t }

func TestSegmentPeriodsCoverage(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	history := []billingcycledomain.PlanHistoryEntry{
		{PlanID: "plan_b", AppliedAt: time.Unix(1000, 0)},
		{PlanID: "plan_a", AppliedAt: time.Unix(0, 0)},
	}
	segments, err := s.SegmentPeriods(context.Background(), history, ptr(time.Unix(2000, 0)), plans)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, "plan_b", segments[0].PlanID)
	assert.Equal(t, int64(1000), segments[0].Start.Unix())
	assert.Equal(t, int64(1999), segments[0].End.Unix())
	assert.Equal(t, "plan_a", segments[1].PlanID)
	assert.Equal(t, int64(0), segments[1].Start.Unix())
	assert.Equal(t, int64(999), segments[1].End.Unix())

	assert.Equal(t, "1970-01-01 00:00:00 ~ 1970-01-01 00:16:39", segments[1].Label)
}

func TestSegmentPeriodsMonthEnd(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	applied := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	segments, err := s.SegmentPeriods(context.Background(),
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "plan_a", AppliedAt: applied}}, &end, plans)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	want := [][2]time.Time{
		{time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 28, 23, 59, 59, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 28, 23, 59, 59, 0, time.UTC)},
	}
	for i, w := range want {
		assert.Equal(t, w[0], segments[i].Start, "segment %d start", i)
		assert.Equal(t, w[1], segments[i].End, "segment %d end", i)
	}
}

func TestSegmentPeriodsYearlyLeapDay(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	applied := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	segments, err := s.SegmentPeriods(context.Background(),
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "annual", AppliedAt: applied}}, &end, plans)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), segments[2].Start)
	assert.Equal(t, time.Date(2025, 2, 27, 23, 59, 59, 0, time.UTC), segments[2].End)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), segments[1].Start)
	assert.Equal(t, time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC), segments[1].End)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), segments[0].Start)
	assert.Equal(t, time.Date(2026, 5, 31, 23, 59, 59, 0, time.UTC), segments[0].End)
}

func TestSegmentPeriodsSegmentsAreContiguous(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	history := []billingcycledomain.PlanHistoryEntry{
		{PlanID: "plan_a", AppliedAt: time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)},
		{PlanID: "annual", AppliedAt: time.Date(2023, 7, 3, 9, 0, 0, 0, time.UTC)},
		{PlanID: "plan_b", AppliedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	end := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	segments, err := s.SegmentPeriods(context.Background(), history, &end, plans)
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	last := len(segments) - 1
	assert.Equal(t, history[0].AppliedAt, segments[last].Start)
	assert.Equal(t, end.Add(-time.Second), segments[0].End)
	for i := 0; i < last; i++ {
		newer, older := segments[i], segments[i+1]
		assert.Equal(t, older.End.Add(time.Second), newer.Start, "gap or overlap before %s", newer.Label)
		assert.True(t, newer.End.After(newer.Start))
	}
}

func TestSegmentPeriodsDegenerateIntervals(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	history := []billingcycledomain.PlanHistoryEntry{
		{PlanID: "plan_a", AppliedAt: base},
		{PlanID: "plan_a", AppliedAt: base.Add(time.Second)},
		{PlanID: "plan_b", AppliedAt: base.Add(time.Second)},
	}
	end := base.AddDate(0, 0, 10)
	segments, err := s.SegmentPeriods(context.Background(), history, &end, plans)
	require.NoError(t, err)
	// the second plan_a entry ends before it starts and is dropped
	require.Len(t, segments, 2)
	assert.Equal(t, "plan_b", segments[0].PlanID)
	assert.Equal(t, base.Add(time.Second), segments[0].Start)
	assert.Equal(t, "plan_a", segments[1].PlanID)
	assert.Equal(t, base, segments[1].Start)
	assert.Equal(t, base, segments[1].End)
}

func TestSegmentPeriodsKeepsTrailingSecond(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := feb.Add(time.Second)
	segments, err := s.SegmentPeriods(context.Background(),
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "plan_a", AppliedAt: jan}}, &periodEnd, plans)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, feb, segments[0].Start)
	assert.Equal(t, feb, segments[0].End)
	assert.Equal(t, "2024-02-01 00:00:00 ~ 2024-02-01 00:00:00", segments[0].Label)
	assert.Equal(t, jan, segments[1].Start)
	assert.Equal(t, feb.Add(-time.Second), segments[1].End)
}

func TestSegmentPeriodsPlanChangeAtPeriodEnd(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	history := []billingcycledomain.PlanHistoryEntry{
		{PlanID: "plan_a", AppliedAt: jan},
		{PlanID: "plan_b", AppliedAt: feb},
	}
	segments, err := s.SegmentPeriods(context.Background(), history, &feb, plans)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "plan_a", segments[0].PlanID)
	assert.Equal(t, feb.Add(-time.Second), segments[0].End)
}

func TestSegmentPeriodsSkipsEmptyPlanIDs(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())

	history := []billingcycledomain.PlanHistoryEntry{
		{PlanID: "plan_a", AppliedAt: time.Unix(0, 0)},
		{PlanID: "", AppliedAt: time.Unix(500, 0)},
		{PlanID: "plan_b", AppliedAt: time.Unix(1000, 0)},
	}
	segments, err := s.SegmentPeriods(context.Background(), history, ptr(time.Unix(2000, 0)), plans)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, int64(999), segments[1].End.Unix())
}

func TestSegmentPeriodsUsesClockWithoutPeriodEnd(t *testing.T) {
	applied := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := applied.Add(72 * time.Hour)
	s := newTestSegmenter(t, now, config.DefaultBillingConfig())

	segments, err := s.SegmentPeriods(context.Background(),
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "plan_a", AppliedAt: applied}}, nil, plans)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, now, segments[0].End)
}

func TestSegmentPeriodsLabelTimezone(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.Timezone = "Asia/Jakarta"
	cfg.LabelLayout = "2006-01-02 15:04"
	cfg.LabelSeparator = " - "
	s := newTestSegmenter(t, time.Now(), cfg)

	segments, err := s.SegmentPeriods(context.Background(),
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "plan_a", AppliedAt: time.Unix(0, 0)}}, ptr(time.Unix(3600, 0)), plans)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "1970-01-01 07:00 - 1970-01-01 07:59", segments[0].Label)
	assert.Equal(t, time.UTC, segments[0].Start.Location())
}

func TestSegmentPeriodsEmptyAndErrors(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())
	ctx := context.Background()

	segments, err := s.SegmentPeriods(ctx, nil, nil, plans)
	require.NoError(t, err)
	assert.Empty(t, segments)

	_, err = s.SegmentPeriods(ctx,
		[]billingcycledomain.PlanHistoryEntry{{PlanID: "gone", AppliedAt: time.Unix(0, 0)}}, ptr(time.Unix(10, 0)), plans)
	assert.ErrorIs(t, err, pricingplandomain.ErrPlanNotFound)
}

func TestListPlanPeriods(t *testing.T) {
	s := newTestSegmenter(t, time.Now(), config.DefaultBillingConfig())
	s.history = historyStub{history: billingcycledomain.TenantHistory{
		History:          []billingcycledomain.PlanHistoryEntry{{PlanID: "plan_a", AppliedAt: time.Unix(0, 0)}},
		CurrentPeriodEnd: ptr(time.Unix(100, 0)),
	}}

	segments, err := s.ListPlanPeriods(context.Background(), "tenant")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, int64(99), segments[0].End.Unix())

	boom := errors.New("boom")
	s.history = historyStub{err: boom}
	_, err = s.ListPlanPeriods(context.Background(), "tenant")
	assert.ErrorIs(t, err, boom)
}

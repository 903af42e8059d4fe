package cloudmetrics

import (
	"strings"
	"sync"
)

type Recorder interface {
	RecordMeteringUpdate(tenantID, unit string)
	RecordDashboardServed(tenantID string)
	RecordPlanPeriodQuery(tenantID string)
	RecordPlanSaved()
	RecordEngineError(tenantID, operation string)
}

type recorder struct {
	metrics *metrics
}

type noopRecorder struct{}

func (noopRecorder) RecordMeteringUpdate(string, string) {}
func (noopRecorder) RecordDashboardServed(string)        {}
func (noopRecorder) RecordPlanPeriodQuery(string)        {}
func (noopRecorder) RecordPlanSaved()                    {}
func (noopRecorder) RecordEngineError(string, string)    {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func current() Recorder {
	recorderMu.RLock()
	defer recorderMu.RUnlock()
	return activeRecorder
}

func RecordMeteringUpdate(tenantID, unit string) {
	current().RecordMeteringUpdate(tenantID, unit)
}

func RecordDashboardServed(tenantID string) {
	current().RecordDashboardServed(tenantID)
}

func RecordPlanPeriodQuery(tenantID string) {
	current().RecordPlanPeriodQuery(tenantID)
}

func RecordPlanSaved() {
	current().RecordPlanSaved()
}

func RecordEngineError(tenantID, operation string) {
	current().RecordEngineError(tenantID, operation)
}

func (r *recorder) RecordMeteringUpdate(tenantID, unit string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.meteringUpdates.WithLabelValues(normalizeLabel(tenantID), normalizeLabel(unit)).Inc()
}

func (r *recorder) RecordDashboardServed(tenantID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.dashboardsServed.WithLabelValues(normalizeLabel(tenantID)).Inc()
}

func (r *recorder) RecordPlanPeriodQuery(tenantID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.planPeriodQueries.WithLabelValues(normalizeLabel(tenantID)).Inc()
}

func (r *recorder) RecordPlanSaved() {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.plansSaved.Inc()
}

func (r *recorder) RecordEngineError(tenantID, operation string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.engineErrors.WithLabelValues(normalizeLabel(tenantID), normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

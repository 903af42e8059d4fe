package cloudmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meterbill"

type metrics struct {
	meteringUpdates   *prometheus.CounterVec
	dashboardsServed  *prometheus.CounterVec
	planPeriodQueries *prometheus.CounterVec
	plansSaved        prometheus.Counter
	engineErrors      *prometheus.CounterVec
	tenantsTotal      prometheus.Gauge
	memoryBytes       prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		meteringUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metering_updates_total",
			Help:      "Metering count updates accepted per tenant and unit.",
		}, []string{"tenant_id", "unit"}),
		dashboardsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "billing_dashboards_total",
			Help:      "Billing dashboards served per tenant.",
		}, []string{"tenant_id"}),
		planPeriodQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_period_queries_total",
			Help:      "Plan period listings served per tenant.",
		}, []string{"tenant_id"}),
		plansSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_plans_saved_total",
			Help:      "Pricing plans created or replaced.",
		}),
		engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Billing operations that failed with an internal error.",
		}, []string{"tenant_id", "operation"}),
		tenantsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tenants",
			Help:      "Registered tenants.",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_sys_bytes",
			Help:      "Bytes of memory obtained from the OS.",
		}),
	}
	if registry != nil {
		registry.MustRegister(
			m.meteringUpdates,
			m.dashboardsServed,
			m.planPeriodQueries,
			m.plansSaved,
			m.engineErrors,
			m.tenantsTotal,
			m.memoryBytes,
		)
	}
	return m
}

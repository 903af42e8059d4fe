package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes billing domain instruments.
type Metrics struct {
	summaries       metric.Int64Counter
	usageFetches    metric.Int64Counter
	segments        metric.Int64Counter
	meteringUpdates metric.Int64Counter
	rateLimitDenied metric.Int64Counter
	summaryDuration metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "meterbill"
	}
	meter := provider.Meter(name)

	summaries, err := meter.Int64Counter("meterbill_billing_summaries_total")
	if err != nil {
		return nil, err
	}
	usageFetches, err := meter.Int64Counter("meterbill_usage_fetches_total")
	if err != nil {
		return nil, err
	}
	segments, err := meter.Int64Counter("meterbill_plan_period_segments_total")
	if err != nil {
		return nil, err
	}
	meteringUpdates, err := meter.Int64Counter("meterbill_metering_updates_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("meterbill_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}
	summaryDuration, err := meter.Float64Histogram("meterbill_billing_summary_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		summaries:       summaries,
		usageFetches:    usageFetches,
		segments:        segments,
		meteringUpdates: meteringUpdates,
		rateLimitDenied: rateLimitDenied,
		summaryDuration: summaryDuration,
	}, nil
}

// RecordSummary counts a built billing summary and its duration.
func (m *Metrics) RecordSummary(ctx context.Context, planID string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("plan_id", strings.TrimSpace(planID)),
		attribute.String("status", statusOf(err)),
	)
	m.summaries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.summaryDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUsageFetch counts calls made to the samples provider.
func (m *Metrics) RecordUsageFetch(ctx context.Context, aggregateMode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("aggregate_mode", strings.TrimSpace(aggregateMode)))
	m.usageFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSegments counts emitted plan period segments by recurrence.
func (m *Metrics) RecordSegments(ctx context.Context, recurrence string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("recurrence", strings.TrimSpace(recurrence)))
	m.segments.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// RecordMeteringUpdate counts metering count updates by method.
func (m *Metrics) RecordMeteringUpdate(ctx context.Context, method string, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.TrimSpace(method)),
		attribute.String("status", statusOf(err)),
	)
	m.meteringUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts requests rejected by the rate limiter.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"plan_id":        {},
	"aggregate_mode": {},
	"recurrence":     {},
	"method":         {},
	"status":         {},
	"endpoint":       {},
	"route":          {},
	"status_code":    {},
}

// FilterAttributes keeps only low-cardinality labels. Tenant ids are never
// allowed.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

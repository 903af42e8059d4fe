package cloudmetrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/meterbill/internal/config"
	"go.uber.org/zap"
)

const (
	exporterPrometheusRemoteWrite = "prometheus_remote_write"
	exporterPrometheusPushgateway = "prometheus_pushgateway"
	defaultPushTimeout            = 5 * time.Second
)

// Pusher ships the billing registry to an external collector.
// Implementations must not start background goroutines.
type Pusher interface {
	Push(ctx context.Context, registry *prometheus.Registry) error
}

type pushTarget struct {
	exporter  string
	endpoint  string
	authToken string
}

func parsePushTarget(cfg config.MetricsPushConfig) (pushTarget, error) {
	target := pushTarget{
		exporter:  strings.ToLower(strings.TrimSpace(cfg.Exporter)),
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		authToken: strings.TrimSpace(cfg.AuthToken),
	}
	switch {
	case target.exporter == "":
		return target, errors.New("metrics push exporter is required")
	case target.endpoint == "":
		return target, errors.New("metrics push endpoint is required")
	}
	switch target.exporter {
	case exporterPrometheusRemoteWrite, exporterPrometheusPushgateway:
	default:
		return target, fmt.Errorf("unsupported metrics push exporter %q", target.exporter)
	}
	if _, err := url.ParseRequestURI(target.endpoint); err != nil {
		return target, fmt.Errorf("invalid metrics push endpoint: %w", err)
	}
	return target, nil
}

// NewPusher builds a pusher from config. Misconfiguration is logged and
// yields nil so billing keeps serving.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Metrics.Enabled {
		return nil
	}

	target, err := parsePushTarget(cfg.Metrics)
	if err != nil {
		logger.Warn("metrics push disabled", zap.Error(err))
		return nil
	}

	labels := externalLabels(cfg)
	if target.exporter == exporterPrometheusPushgateway {
		job := labels["service"]
		delete(labels, "service")
		return NewPushgatewayPusher(target.endpoint, job, labels)
	}
	return NewRemoteWritePusher(target.endpoint, target.authToken, labels)
}

// externalLabels identify this deployment on every pushed series.
func externalLabels(cfg config.Config) map[string]string {
	service := strings.TrimSpace(cfg.AppName)
	if service == "" {
		service = "meterbill"
	}
	labels := map[string]string{"service": service}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		labels["environment"] = env
	}
	return labels
}

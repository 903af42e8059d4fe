package cloudmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/meterbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPushInterval = 30 * time.Second

var Module = fx.Module("cloud.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Invoke(Register),
	fx.Invoke(startPushWorker),
)

// Register installs the billing recorder backed by registry.
func Register(registry *prometheus.Registry) {
	setRecorder(&recorder{metrics: newMetrics(registry)})
}

func startPushWorker(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger, db *gorm.DB) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	interval := time.Duration(cfg.Metrics.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultPushInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				pushOnce(ctx, registry, pusher, db, logger)
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx, registry, pusher, db, logger)
					case <-ctx.Done():
						logger.Info("stopping metrics push worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func pushOnce(ctx context.Context, registry *prometheus.Registry, pusher Pusher, db *gorm.DB, logger *zap.Logger) {
	updateSystemMetrics()
	updateTenantCount(ctx, db)

	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := pusher.Push(pushCtx, registry); err != nil {
		logger.Warn("metrics push failed", zap.Error(err))
	}
}

func updateSystemMetrics() {
	rec, ok := current().(*recorder)
	if !ok || rec.metrics == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	rec.metrics.memoryBytes.Set(float64(m.Sys))
}

func updateTenantCount(ctx context.Context, db *gorm.DB) {
	rec, ok := current().(*recorder)
	if !ok || rec.metrics == nil || db == nil {
		return
	}
	var count int64
	if err := db.WithContext(ctx).Table("tenants").Count(&count).Error; err != nil {
		return
	}
	rec.metrics.tenantsTotal.Set(float64(count))
}

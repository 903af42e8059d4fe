package logger

import (
	"context"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/meterbill/internal/observability/context"
	"github.com/smallbiznis/meterbill/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithTenantID(ctx, "tenant-1")
	ctx = correlation.ContextWithCorrelationID(ctx, "01HZX")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "tenant-1", fields["tenant_id"])
		assert.Equal(t, "01HZX", fields["correlation_id"])
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("with x as (select 1) SELECT * FROM x"))
	assert.Equal(t, "INSERT", operationFromSQL(`INSERT INTO "metering_unit_counts" ...`))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "metering_unit_counts", tableFromSQL(`SELECT * FROM "metering_unit_counts" WHERE tenant_id = $1`))
	assert.Equal(t, "pricing_plans", tableFromSQL(`INSERT INTO "pricing_plans" ("id") VALUES ($1)`))
	assert.Equal(t, "tenants", tableFromSQL(`UPDATE tenants SET name = $1`))
	assert.Empty(t, tableFromSQL("SELECT 1"))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gl := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())
	query := func() (string, int64) { return `SELECT * FROM "tenants"`, 1 }

	gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)
	gl.Trace(context.Background(), time.Now(), query, nil)
	assert.Zero(t, logs.Len())

	gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	gl.Trace(context.Background(), time.Now(), query, assert.AnError)
	entries := logs.TakeAll()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "db.query.slow", entries[0].Message)
		assert.Equal(t, "tenants", entries[0].ContextMap()["table"])
		assert.Equal(t, "db.query.failed", entries[1].Message)
	}

	gl.LogMode(gormlogger.Info).Info(context.Background(), "migrated %d tables", 4)
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "migrated 4 tables", logs.All()[0].Message)
	}
}

func TestNewValidatesLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)

	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(nil, Config{Level: "warn", Format: "console"})
	if assert.NoError(t, err) {
		assert.False(t, log.Core().Enabled(zap.InfoLevel))
		assert.True(t, log.Core().Enabled(zap.WarnLevel))
		assert.Same(t, log, zap.L())
	}
}

func TestPositiveOr(t *testing.T) {
	assert.Equal(t, 100, positiveOr(0, 100))
	assert.Equal(t, 5, positiveOr(5, 100))
	assert.Equal(t, time.Second, positiveOr(time.Duration(-1), time.Second))
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/billing/dashboard", 500))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/metering/:tenant_id/:unit/:ts", 429))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", 200))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/tenant/plan_periods", 200))
}

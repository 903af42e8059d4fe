package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/meterbill/internal/observability/metrics"
	"github.com/smallbiznis/meterbill/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/meterbill/internal/tenant/domain"
	usagedomain "github.com/smallbiznis/meterbill/internal/usage/domain"
	"github.com/smallbiznis/meterbill/pkg/db"
	"github.com/smallbiznis/meterbill/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    usagedomain.Repository
	Tenants tenantdomain.Service
	Limiter *ratelimit.MeteringLimiter `optional:"true"`
	Metrics *obsmetrics.Metrics        `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    usagedomain.Repository
	tenants tenantdomain.Service
	limiter *ratelimit.MeteringLimiter
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		tenants: p.Tenants,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

// UpdateCount applies an add, sub or direct update to the count stored for
// (tenant, unit, timestamp), creating the row on first write. The tenant must
// exist; counts are keyed by its canonical id.
func (s *Service) UpdateCount(ctx context.Context, req usagedomain.UpdateCountRequest) (resp *usagedomain.CountResponse, err error) {
	defer func() {
		s.metrics.RecordMeteringUpdate(ctx, string(req.Method), err)
	}()

	if err := validateUpdate(req); err != nil {
		return nil, err
	}
	tenant, err := s.tenants.Get(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	tenantID := tenant.ID
	unitName := strings.TrimSpace(req.UnitName)
	ts := req.Timestamp.UTC()

	lease, ok, err := s.limiter.LockCount(ctx, tenantID, unitName, ts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, usagedomain.ErrCountLocked
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			s.log.Warn("release metering lock failed", zap.Error(releaseErr))
		}
	}()

	var updated usagedomain.MeteringCount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, tenantID); err != nil {
			return err
		}

		current, err := s.repo.FindCount(ctx, tx, tenantID, unitName, ts)
		if err != nil {
			return err
		}

		var base int64
		if current != nil {
			base = current.Count
		}
		next, err := applyMethod(base, req.Method, req.Count)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if current == nil {
			updated = usagedomain.MeteringCount{
				ID:        s.genID.Generate(),
				TenantID:  tenantID,
				UnitName:  unitName,
				Timestamp: ts,
				Count:     next,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return s.repo.InsertCount(ctx, tx, &updated)
		}

		current.Count = next
		current.UpdatedAt = now
		updated = *current
		return s.repo.SaveCount(ctx, tx, current)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			// a concurrent first write won the insert
			return nil, usagedomain.ErrCountLocked
		}
		return nil, err
	}

	s.log.Debug("metering count updated",
		zap.String("tenant_id", tenantID),
		zap.String("metering_unit_name", unitName),
		zap.String("method", string(req.Method)),
		zap.Int64("count", updated.Count),
	)

	return &usagedomain.CountResponse{
		TenantID:  updated.TenantID,
		UnitName:  updated.UnitName,
		Timestamp: updated.Timestamp.Unix(),
		Count:     updated.Count,
		UpdatedAt: updated.UpdatedAt,
	}, nil
}

func validateUpdate(req usagedomain.UpdateCountRequest) error {
	if strings.TrimSpace(req.TenantID) == "" {
		return usagedomain.ErrInvalidTenant
	}
	if strings.TrimSpace(req.UnitName) == "" {
		return usagedomain.ErrInvalidUnitName
	}
	if req.Timestamp.IsZero() || req.Timestamp.Unix() < 0 {
		return usagedomain.ErrInvalidTimestamp
	}
	if req.Count < 0 {
		return usagedomain.ErrInvalidValue
	}
	switch req.Method {
	case usagedomain.UpdateMethodAdd, usagedomain.UpdateMethodSub, usagedomain.UpdateMethodDirect:
		return nil
	default:
		return usagedomain.ErrInvalidMethod
	}
}

func applyMethod(current int64, method usagedomain.UpdateMethod, count int64) (int64, error) {
	switch method {
	case usagedomain.UpdateMethodAdd:
		return current + count, nil
	case usagedomain.UpdateMethodSub:
		if count > current {
			return 0, usagedomain.ErrInvalidValue
		}
		return current - count, nil
	case usagedomain.UpdateMethodDirect:
		return count, nil
	default:
		return 0, usagedomain.ErrInvalidMethod
	}
}

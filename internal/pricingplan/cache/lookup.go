// Package cache memoizes plan lookups in redis, or in process when redis
// is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/meterbill/internal/cache"
	"github.com/smallbiznis/meterbill/internal/config"
	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
	"go.uber.org/zap"
)

const keyPrefix = "meterbill:plan:"

type Lookup struct {
	inner  pricingplandomain.Service
	client redis.UniversalClient
	local  cache.Cache[string, pricingplandomain.PricingPlan]
	config *config.BillingConfigHolder
	log    *zap.Logger
}

func NewLookup(inner pricingplandomain.Service, client redis.UniversalClient, cfg *config.BillingConfigHolder, log *zap.Logger) *Lookup {
	return &Lookup{
		inner:  inner,
		client: client,
		local:  cache.NewTTLCache[string, pricingplandomain.PricingPlan](),
		config: cfg,
		log:    log.Named("pricingplan.cache"),
	}
}

func (l *Lookup) GetPlan(ctx context.Context, planID string) (*pricingplandomain.PricingPlan, error) {
	ttl := l.config.Get().PlanCacheTTL
	if ttl <= 0 || planID == "" {
		return l.inner.GetPlan(ctx, planID)
	}

	if plan, ok := l.load(ctx, planID); ok {
		return plan, nil
	}

	plan, err := l.inner.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	l.store(ctx, planID, plan, ttl)
	return plan, nil
}

func (l *Lookup) SavePlan(ctx context.Context, req pricingplandomain.SavePlanRequest) (*pricingplandomain.PricingPlan, error) {
	plan, err := l.inner.SavePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	l.Invalidate(ctx, plan.ID)
	return plan, nil
}

// Invalidate drops a cached plan after it has been saved.
func (l *Lookup) Invalidate(ctx context.Context, planID string) {
	l.local.Delete(planID)
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, keyPrefix+planID).Err(); err != nil {
		l.log.Warn("plan cache delete failed", zap.String("plan_id", planID), zap.Error(err))
	}
}

func (l *Lookup) load(ctx context.Context, planID string) (*pricingplandomain.PricingPlan, bool) {
	if l.client == nil {
		plan, ok := l.local.Get(planID)
		if !ok {
			return nil, false
		}
		return &plan, true
	}

	raw, err := l.client.Get(ctx, keyPrefix+planID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.log.Warn("plan cache read failed", zap.String("plan_id", planID), zap.Error(err))
		}
		return nil, false
	}

	var plan pricingplandomain.PricingPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		l.log.Warn("plan cache entry corrupt", zap.String("plan_id", planID), zap.Error(err))
		return nil, false
	}
	return &plan, true
}

func (l *Lookup) store(ctx context.Context, planID string, plan *pricingplandomain.PricingPlan, ttl time.Duration) {
	if l.client == nil {
		l.local.Set(planID, *plan, ttl)
		return
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		l.log.Warn("plan cache encode failed", zap.String("plan_id", planID), zap.Error(err))
		return
	}
	if err := l.client.Set(ctx, keyPrefix+planID, raw, ttl).Err(); err != nil {
		l.log.Warn("plan cache write failed", zap.String("plan_id", planID), zap.Error(err))
	}
}

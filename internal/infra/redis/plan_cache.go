package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
	"telegram-vpn-orders/internal/infra/metrics"
)

var _ repository.PlanRepository = (*planCacheDecorator)(nil)

const activePlansKey = "plans:active"

// planCacheDecorator caches plan reads; every write invalidates the affected keys.
// A read that overlapped a write does not fill the cache, so a value read before a
// deactivation cannot outlive the Del that followed it.
type planCacheDecorator struct {
	inner repository.PlanRepository
	cache RedisClient
	ttl   time.Duration
	gen   atomic.Uint64
}

func NewPlanCacheDecorator(inner repository.PlanRepository, cache RedisClient, ttl time.Duration) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func planKey(id int64) string { return fmt.Sprintf("plan:%d", id) }

func (d *planCacheDecorator) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	key := planKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	}
	if err != nil && !IsNil(err) {
		metrics.IncCacheRequest("plan", "error")
	} else {
		metrics.IncCacheRequest("plan", "miss")
	}
	gen := d.gen.Load()
	plan, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plan); err == nil && d.gen.Load() == gen {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return plan, nil
}

func (d *planCacheDecorator) ListActive(ctx context.Context) ([]*model.Plan, error) {
	if val, err := d.cache.Get(ctx, activePlansKey); err == nil {
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	gen := d.gen.Load()
	plans, err := d.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 && d.gen.Load() == gen {
		if b, err := json.Marshal(plans); err == nil {
			_ = d.cache.Set(ctx, activePlansKey, b, d.ttl)
		}
	}
	return plans, nil
}

// ListAll is dashboard-only and always reads through.
func (d *planCacheDecorator) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return d.inner.ListAll(ctx)
}

func (d *planCacheDecorator) Save(ctx context.Context, plan *model.Plan) error {
	if err := d.inner.Save(ctx, plan); err != nil {
		return err
	}
	d.gen.Add(1)
	_ = d.cache.Del(ctx, planKey(plan.ID), activePlansKey)
	return nil
}

func (d *planCacheDecorator) SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error) {
	p, err := d.inner.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	d.gen.Add(1)
	_ = d.cache.Del(ctx, planKey(id), activePlansKey)
	return p, nil
}

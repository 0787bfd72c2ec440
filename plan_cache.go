package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"lg/clinic-nutrition-api/nutrition"
)

// planCache stores generated plan days by key. Generation is deterministic,
// so a hit is always equivalent to regenerating.
type planCache interface {
	Get(ctx context.Context, key string) ([]nutrition.DayPlan, bool)
	Set(ctx context.Context, key string, days []nutrition.DayPlan)
}

// planCacheKey identifies a generated plan. templates is the loaded template
// library's digest, so editing the template file invalidates old entries.
// Bump the version when the generator output changes.
func planCacheKey(templates string, diet nutrition.DietType, days int, start time.Time, lang string) string {
	return fmt.Sprintf("mealplan:v1:%s:%s:%d:%s:%s", templates, diet, days, start.Format(time.DateOnly), lang)
}

// redisPlanCache keeps plans in Redis as JSON with a fixed TTL.
type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// newPlanCache connects to Redis when url is set, otherwise returns a cache
// that never hits.
func newPlanCache(ctx context.Context, url string, ttl time.Duration) (planCache, error) {
	if url == "" {
		return noopPlanCache{}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &redisPlanCache{client: client, ttl: ttl}, nil
}

func (r *redisPlanCache) Get(ctx context.Context, key string) ([]nutrition.DayPlan, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("[planCache] get failed")
		}
		return nil, false
	}
	var days []nutrition.DayPlan
	if err := json.Unmarshal(b, &days); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("[planCache] corrupt entry")
		return nil, false
	}
	return days, true
}

func (r *redisPlanCache) Set(ctx context.Context, key string, days []nutrition.DayPlan) {
	b, err := json.Marshal(days)
	if err != nil {
		log.Error().Err(err).Msg("[planCache] marshal")
		return
	}
	if err := r.client.Set(ctx, key, b, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("[planCache] set failed")
	}
}

func (r *redisPlanCache) Close() error {
	return r.client.Close()
}

type noopPlanCache struct{}

func (noopPlanCache) Get(context.Context, string) ([]nutrition.DayPlan, bool) { return nil, false }
func (noopPlanCache) Set(context.Context, string, []nutrition.DayPlan)        {}

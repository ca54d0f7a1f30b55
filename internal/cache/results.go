package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	building "Hestia/internal/calc/building"

	"go.uber.org/zap"
)

// ResultCache keeps the latest whole-building aggregate per project so the
// results endpoint does not hit Postgres on every poll. Entries are
// invalidated whenever a project's rooms or parameters change; the TTL is a
// backstop, not the consistency mechanism.
type ResultCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewResultCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *ResultCache {
	return &ResultCache{kv: kv, ttl: ttl, logger: logger}
}

func resultKey(projectID string) string {
	return fmt.Sprintf("hestia:project:%s:results", projectID)
}

// Get returns the cached aggregate, or ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, projectID string) (building.Result, error) {
	raw, err := c.kv.Get(ctx, resultKey(projectID))
	if err != nil {
		return building.Result{}, err
	}
	var res building.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		// A corrupt entry behaves like a miss; the caller will recompute
		// and overwrite it.
		c.logger.Warn("dropping corrupt result cache entry",
			zap.String("project_id", projectID), zap.Error(err))
		_ = c.kv.Del(ctx, resultKey(projectID))
		return building.Result{}, ErrCacheMiss
	}
	return res, nil
}

func (c *ResultCache) Set(ctx context.Context, projectID string, res building.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.kv.Set(ctx, resultKey(projectID), string(payload), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	c.logger.Debug("result cache updated", zap.String("project_id", projectID))
	return nil
}

// Invalidate drops a project's cached results. Callers invoke it on every
// room or parameter mutation.
func (c *ResultCache) Invalidate(ctx context.Context, projectID string) error {
	return c.kv.Del(ctx, resultKey(projectID))
}

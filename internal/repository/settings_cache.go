// internal/repository/settings_cache.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/models"
	"order-reconciler/pkg/redis"
)

const pricingCacheKey = "settings:pricing"

// ErrCacheMiss is returned when neither cache layer holds the config.
var ErrCacheMiss = errors.New("cache miss")

// SettingsCache caches the pricing config in memory first, then Redis.
// Redis is optional.
type SettingsCache struct {
	redis  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cached   *models.PricingConfig
	cachedAt time.Time
}

func NewSettingsCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *SettingsCache {
	return &SettingsCache{
		redis:  redisClient,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns a copy of the cached config or ErrCacheMiss.
func (c *SettingsCache) Get(ctx context.Context) (*models.PricingConfig, error) {
	c.mu.RLock()
	cfg, at := c.cached, c.cachedAt
	c.mu.RUnlock()

	if cfg != nil && c.now().Sub(at) <= c.ttl {
		c.logger.Debug("pricing config cache hit (memory)")
		cp := *cfg
		return &cp, nil
	}

	if c.redis == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.redis.Get(ctx, pricingCacheKey)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			c.logger.Warn("pricing config redis lookup failed", zap.Error(err))
		}
		return nil, ErrCacheMiss
	}

	var fromRedis models.PricingConfig
	if err := json.Unmarshal([]byte(data), &fromRedis); err != nil {
		c.logger.Warn("discarding malformed cached pricing config", zap.Error(err))
		return nil, ErrCacheMiss
	}

	c.logger.Debug("pricing config cache hit (redis)")
	c.setMemory(&fromRedis)
	cp := fromRedis
	return &cp, nil
}

// Set stores cfg in both layers.
func (c *SettingsCache) Set(ctx context.Context, cfg *models.PricingConfig) error {
	cp := *cfg
	c.setMemory(&cp)

	if c.redis == nil {
		return nil
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing config: %w", err)
	}
	if err := c.redis.Set(ctx, pricingCacheKey, data, c.ttl); err != nil {
		c.logger.Error("failed to cache pricing config in redis", zap.Error(err))
		return err
	}
	return nil
}

// Invalidate drops the config from both layers.
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()

	if c.redis == nil {
		return nil
	}
	return c.redis.Delete(ctx, pricingCacheKey)
}

func (c *SettingsCache) setMemory(cfg *models.PricingConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = cfg
	c.cachedAt = c.now()
}

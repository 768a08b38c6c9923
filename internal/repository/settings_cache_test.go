package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-reconciler/internal/models"
	"order-reconciler/pkg/redis"
)

func TestSettingsCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewRedisClient(mr.Addr())
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSettingsCache(client, time.Minute, zap.NewNop())
	cache.now = func() time.Time { return now }

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	cfg := &models.PricingConfig{CustomsPercent: decimal.NewFromInt(10)}
	require.NoError(t, cache.Set(ctx, cfg))
	assert.True(t, mr.Exists(pricingCacheKey))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", got.CustomsPercent.String())

	// memory layer expired; redis still serves it
	now = now.Add(2 * time.Minute)
	got, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", got.CustomsPercent.String())

	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(pricingCacheKey))
	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSettingsCache_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	cache := NewSettingsCache(nil, time.Minute, zap.NewNop())

	require.NoError(t, cache.Set(ctx, &models.PricingConfig{SecondaryCurrency: "EGP"}))
	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EGP", got.SecondaryCurrency)
}

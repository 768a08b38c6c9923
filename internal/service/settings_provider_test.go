package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-reconciler/internal/models"
	"order-reconciler/internal/repository"
)

type memSettings struct {
	cfg   *models.PricingConfig
	reads int
	err   error
}

func (s *memSettings) GetPricingConfig(context.Context) (*models.PricingConfig, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return nil, nil
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *memSettings) SavePricingConfig(_ context.Context, cfg *models.PricingConfig) error {
	cp := *cfg
	s.cfg = &cp
	return nil
}

func newProvider(store *memSettings) *SettingsProvider {
	cache := repository.NewSettingsCache(nil, time.Minute, zap.NewNop())
	return NewSettingsProvider(store, cache, testPricingConfig(), zap.NewNop())
}

func TestSettingsProvider_DefaultsWhenNothingStored(t *testing.T) {
	store := &memSettings{}
	p := newProvider(store)

	cfg, err := p.PricingConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.InternationalShipping.Equal(decimal.NewFromInt(20)))

	_, err = p.PricingConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
}

func TestSettingsProvider_UpdateInvalidatesCache(t *testing.T) {
	store := &memSettings{}
	p := newProvider(store)
	ctx := context.Background()

	_, err := p.PricingConfig(ctx)
	require.NoError(t, err)

	updated := testPricingConfig()
	updated.CustomsPercent = decimal.NewFromInt(14)
	require.NoError(t, p.UpdatePricingConfig(ctx, updated))

	cfg, err := p.PricingConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.CustomsPercent.Equal(decimal.NewFromInt(14)))
	assert.Equal(t, 2, store.reads)
}

func TestSettingsProvider_RejectsNegativeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *models.PricingConfig)
	}{
		{name: "shipping", mutate: func(cfg *models.PricingConfig) { cfg.InternationalShipping = decimal.NewFromInt(-1) }},
		{name: "default commission", mutate: func(cfg *models.PricingConfig) { cfg.DefaultCommissionPercent = decimal.NewFromInt(-10) }},
		{name: "secondary rate", mutate: func(cfg *models.PricingConfig) { cfg.SecondaryCurrencyRate = decimal.RequireFromString("-0.5") }},
		{name: "store commission", mutate: func(cfg *models.PricingConfig) {
			cfg.StoreCommissionPercent = map[string]decimal.Decimal{
				"shopA":  decimal.NewFromInt(8),
				"amazon": decimal.NewFromInt(-50),
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memSettings{}
			p := newProvider(store)

			bad := testPricingConfig()
			tt.mutate(&bad)
			assert.ErrorIs(t, p.UpdatePricingConfig(context.Background(), bad), ErrInvalidPricingConfig)
			assert.Nil(t, store.cfg)
		})
	}
}

func TestSettingsProvider_AcceptsStoreOverrides(t *testing.T) {
	store := &memSettings{}
	p := newProvider(store)

	cfg := testPricingConfig()
	cfg.StoreCommissionPercent = map[string]decimal.Decimal{"shopA": decimal.NewFromInt(8)}
	require.NoError(t, p.UpdatePricingConfig(context.Background(), cfg))
	require.NotNil(t, store.cfg)
	assert.True(t, store.cfg.CommissionPercentFor("shopA").Equal(decimal.NewFromInt(8)))
}

func TestSettingsProvider_StoreError(t *testing.T) {
	p := newProvider(&memSettings{err: errors.New("db down")})
	_, err := p.PricingConfig(context.Background())
	assert.Error(t, err)
}

// internal/service/settings_provider.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"order-reconciler/internal/models"
	"order-reconciler/internal/repository"
)

type SettingsStore interface {
	GetPricingConfig(ctx context.Context) (*models.PricingConfig, error)
	SavePricingConfig(ctx context.Context, cfg *models.PricingConfig) error
}

// SettingsProvider serves the operator pricing config through the cache,
// falling back to the defaults from the environment when none is stored.
type SettingsProvider struct {
	store    SettingsStore
	cache    *repository.SettingsCache
	defaults models.PricingConfig
	logger   *zap.Logger
}

func NewSettingsProvider(store SettingsStore, cache *repository.SettingsCache, defaults models.PricingConfig, logger *zap.Logger) *SettingsProvider {
	return &SettingsProvider{store: store, cache: cache, defaults: defaults, logger: logger}
}

func (p *SettingsProvider) PricingConfig(ctx context.Context) (models.PricingConfig, error) {
	if cfg, err := p.cache.Get(ctx); err == nil {
		return *cfg, nil
	}

	stored, err := p.store.GetPricingConfig(ctx)
	if err != nil {
		return models.PricingConfig{}, fmt.Errorf("load pricing settings: %w", err)
	}

	cfg := p.defaults
	if stored != nil {
		cfg = *stored
	} else {
		p.logger.Debug("no stored pricing config, using defaults")
	}

	if err := p.cache.Set(ctx, &cfg); err != nil {
		p.logger.Warn("failed to cache pricing config", zap.Error(err))
	}
	return cfg, nil
}

// UpdatePricingConfig stores cfg and drops cached copies.
func (p *SettingsProvider) UpdatePricingConfig(ctx context.Context, cfg models.PricingConfig) error {
	if err := validatePricingConfig(cfg); err != nil {
		return err
	}
	if err := p.store.SavePricingConfig(ctx, &cfg); err != nil {
		return err
	}
	if err := p.cache.Invalidate(ctx); err != nil {
		p.logger.Warn("failed to invalidate pricing cache", zap.Error(err))
	}
	p.logger.Info("pricing config updated")
	return nil
}

func validatePricingConfig(cfg models.PricingConfig) error {
	if cfg.DefaultCommissionPercent.IsNegative() || cfg.CustomsPercent.IsNegative() ||
		cfg.InternationalShipping.IsNegative() || cfg.FreeShippingThreshold.IsNegative() ||
		cfg.SecondaryCurrencyRate.IsNegative() {
		return ErrInvalidPricingConfig
	}
	for store, pct := range cfg.StoreCommissionPercent {
		if pct.IsNegative() {
			return fmt.Errorf("%w: commission for store %q", ErrInvalidPricingConfig, store)
		}
	}
	return nil
}

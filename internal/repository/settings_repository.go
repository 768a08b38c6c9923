// internal/repository/settings_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"order-reconciler/internal/models"
)

const pricingSettingsKey = "pricing"

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetPricingConfig returns nil when no operator config has been stored.
func (r *SettingsRepository) GetPricingConfig(ctx context.Context) (*models.PricingConfig, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM platform_settings WHERE key = $1`, pricingSettingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pricing settings: %w", err)
	}

	var cfg models.PricingConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal pricing settings: %w", err)
	}
	return &cfg, nil
}

func (r *SettingsRepository) SavePricingConfig(ctx context.Context, cfg *models.PricingConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal pricing settings: %w", err)
	}
	query := `
		INSERT INTO platform_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, pricingSettingsKey, string(raw)); err != nil {
		return fmt.Errorf("save pricing settings: %w", err)
	}
	return nil
}

// internal/repository/user_stats_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type UserStatsRepository struct {
	db *sql.DB
}

func NewUserStatsRepository(db *sql.DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// RecordOrder bumps the user's order count. lastOrderDate never moves
// backwards when updates arrive out of order.
func (r *UserStatsRepository) RecordOrder(ctx context.Context, userID string, orderedAt time.Time) error {
	query := `
		INSERT INTO user_stats (user_id, total_orders, last_order_date, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET total_orders = user_stats.total_orders + 1,
			last_order_date = GREATEST(user_stats.last_order_date, EXCLUDED.last_order_date),
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, orderedAt); err != nil {
		return fmt.Errorf("record user order: %w", err)
	}
	return nil
}

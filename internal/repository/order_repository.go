// internal/repository/order_repository.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"order-reconciler/internal/models"
	"order-reconciler/pkg/database"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, items, pricing, status, status_history,
	gateway_session_id, cart_id, cart_consumed_at, created_at, updated_at`

// Create inserts the order. A second order for the same gateway session
// fails with ErrDuplicateOrder; the unique index is the only guard against
// concurrent webhook and verify calls.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	pricing, err := json.Marshal(order.Pricing)
	if err != nil {
		return fmt.Errorf("marshal order pricing: %w", err)
	}
	history, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshal status history: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, user_id, items, pricing, status, status_history,
			gateway_session_id, cart_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		items,
		pricing,
		order.Status,
		history,
		order.Metadata.GatewaySessionID,
		order.Metadata.CartID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, orderSessionConstraint) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) GetByGatewaySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_session_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, sessionID))
}

// MarkCartConsumed records that the order's cart was cleared. It only
// sets the marker once; later calls leave the original timestamp.
func (r *OrderRepository) MarkCartConsumed(ctx context.Context, orderID string, at time.Time) error {
	query := `
		UPDATE orders
		SET cart_consumed_at = $1, updated_at = $1
		WHERE id = $2 AND cart_consumed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, at, orderID); err != nil {
		return fmt.Errorf("mark cart consumed: %w", err)
	}
	return nil
}

func (r *OrderRepository) scanOne(row *sql.Row) (*models.Order, error) {
	var (
		order                   models.Order
		items, pricing, history []byte
		consumedAt              sql.NullTime
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&items,
		&pricing,
		&order.Status,
		&history,
		&order.Metadata.GatewaySessionID,
		&order.Metadata.CartID,
		&consumedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(pricing, &order.Pricing); err != nil {
		return nil, fmt.Errorf("unmarshal order pricing: %w", err)
	}
	if err := json.Unmarshal(history, &order.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		order.CartConsumedAt = &t
	}
	return &order, nil
}

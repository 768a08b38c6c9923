// internal/repository/unresolved_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"order-reconciler/internal/models"
)

// UnresolvedRepository keeps paid sessions that have no order yet.
type UnresolvedRepository struct {
	db *sql.DB
}

func NewUnresolvedRepository(db *sql.DB) *UnresolvedRepository {
	return &UnresolvedRepository{db: db}
}

// Record upserts by session id; repeated failures bump attempts.
func (r *UnresolvedRepository) Record(ctx context.Context, rec *models.UnresolvedMaterialization) error {
	query := `
		INSERT INTO unresolved_materializations (
			session_id, user_id, cart_id, paid_amount, currency, reason,
			attempts, first_seen_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
		ON CONFLICT (session_id) DO UPDATE
		SET attempts = unresolved_materializations.attempts + 1,
			reason = EXCLUDED.reason,
			last_seen_at = EXCLUDED.last_seen_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.SessionID,
		rec.UserID,
		rec.CartID,
		rec.PaidAmount,
		rec.Currency,
		rec.Reason,
		rec.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("record unresolved materialization: %w", err)
	}
	return nil
}

// Resolve drops the record once an order exists for the session.
func (r *UnresolvedRepository) Resolve(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM unresolved_materializations WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("resolve unresolved materialization: %w", err)
	}
	return nil
}

func (r *UnresolvedRepository) List(ctx context.Context, limit int) ([]*models.UnresolvedMaterialization, error) {
	query := `
		SELECT session_id, user_id, cart_id, paid_amount, currency, reason,
			   attempts, first_seen_at, last_seen_at
		FROM unresolved_materializations
		ORDER BY last_seen_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unresolved materializations: %w", err)
	}
	defer rows.Close()

	var records []*models.UnresolvedMaterialization
	for rows.Next() {
		var rec models.UnresolvedMaterialization
		if err := rows.Scan(
			&rec.SessionID,
			&rec.UserID,
			&rec.CartID,
			&rec.PaidAmount,
			&rec.Currency,
			&rec.Reason,
			&rec.Attempts,
			&rec.FirstSeenAt,
			&rec.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("scan unresolved materialization: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

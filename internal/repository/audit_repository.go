// internal/repository/audit_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"order-reconciler/internal/models"
)

// AuditRepository runs the read-only reporting queries behind the admin
// payment export.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// PaymentsBetween returns payments in [start, end) joined to their order.
func (r *AuditRepository) PaymentsBetween(ctx context.Context, start, end time.Time) ([]*models.PaymentAuditRow, error) {
	query := `
		SELECT o.id, o.order_number, p.payment_number, p.transaction_id, o.gateway_session_id,
			   COALESCE(p.gateway_payment_intent_id, ''), p.amount,
			   (o.pricing->>'total_cost')::numeric, p.currency, p.created_at
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE p.created_at >= $1 AND p.created_at < $2
		ORDER BY p.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query payments for audit: %w", err)
	}
	defer rows.Close()

	var result []*models.PaymentAuditRow
	for rows.Next() {
		var row models.PaymentAuditRow
		if err := rows.Scan(
			&row.OrderID,
			&row.OrderNumber,
			&row.PaymentNumber,
			&row.TransactionID,
			&row.GatewaySessionID,
			&row.PaymentIntentID,
			&row.PaidAmount,
			&row.RecordedTotal,
			&row.Currency,
			&row.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

// CountOrdersWithoutPayment counts orders created in [start, end) whose
// payment insert never landed.
func (r *AuditRepository) CountOrdersWithoutPayment(ctx context.Context, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE p.id IS NULL AND o.created_at >= $1 AND o.created_at < $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, start, end).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders without payment: %w", err)
	}
	return n, nil
}

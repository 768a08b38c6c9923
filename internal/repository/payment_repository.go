// internal/repository/payment_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"order-reconciler/internal/models"
	"order-reconciler/pkg/database"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts the payment. A second payment for the same transaction
// fails with ErrDuplicatePayment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, payment_number, order_id, user_id, amount, currency, method,
			status, transaction_id, gateway_payment_intent_id, gateway_response, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.PaymentNumber,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
		payment.TransactionID,
		nullString(payment.GatewayPaymentIntentID),
		nullJSON(payment.GatewayResponse),
		payment.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, paymentTransactionConstraint) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `
		SELECT id, payment_number, order_id, user_id, amount, currency, method,
			   status, transaction_id, gateway_payment_intent_id, gateway_response, created_at
		FROM payments WHERE transaction_id = $1
	`

	var (
		payment  models.Payment
		intentID sql.NullString
		raw      []byte
	)
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&payment.ID,
		&payment.PaymentNumber,
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&payment.TransactionID,
		&intentID,
		&raw,
		&payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}

	payment.GatewayPaymentIntentID = intentID.String
	payment.GatewayResponse = raw
	return &payment, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// internal/repository/errors.go
package repository

import "errors"

var (
	// ErrDuplicateOrder means another caller already created the order for
	// this gateway session.
	ErrDuplicateOrder = errors.New("order already exists for gateway session")
	// ErrDuplicatePayment means another caller already recorded this
	// transaction.
	ErrDuplicatePayment = errors.New("payment already exists for transaction")
)

// Constraint names from migrations/000001.
const (
	orderSessionConstraint       = "orders_gateway_session_id_key"
	paymentTransactionConstraint = "payments_transaction_id_key"
)

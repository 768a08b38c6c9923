// internal/service/idempotency.go
package service

import (
	"context"
	"errors"
	"fmt"

	"order-reconciler/internal/models"
	"order-reconciler/internal/repository"
)

// IdempotencyIndex is the only concurrency control around materialization.
// It relies on two unique constraints: orders.gateway_session_id and
// payments.transaction_id. Callers insert optimistically; a losing insert
// reports a conflict and the caller re-reads the winner's rows.
type IdempotencyIndex struct {
	orders   OrderStore
	payments PaymentStore
}

func NewIdempotencyIndex(orders OrderStore, payments PaymentStore) *IdempotencyIndex {
	return &IdempotencyIndex{orders: orders, payments: payments}
}

// FindExisting looks up the payment by transaction id first, then the
// order by session id. Either result may be nil.
func (x *IdempotencyIndex) FindExisting(ctx context.Context, sessionID, transactionID string) (*models.Order, *models.Payment, error) {
	payment, err := x.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find payment by transaction: %w", err)
	}
	if payment != nil {
		order, err := x.orders.GetByID(ctx, payment.OrderID)
		if err != nil {
			return nil, nil, fmt.Errorf("find order for payment %s: %w", payment.ID, err)
		}
		if order == nil {
			return nil, nil, fmt.Errorf("payment %s references missing order %s", payment.ID, payment.OrderID)
		}
		return order, payment, nil
	}

	order, err := x.orders.GetByGatewaySessionID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find order by session: %w", err)
	}
	return order, nil, nil
}

// TryInsertOrder returns false without error when another caller already
// owns the session.
func (x *IdempotencyIndex) TryInsertOrder(ctx context.Context, order *models.Order) (bool, error) {
	err := x.orders.Create(ctx, order)
	if errors.Is(err, repository.ErrDuplicateOrder) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TryInsertPayment returns false without error when the transaction is
// already recorded.
func (x *IdempotencyIndex) TryInsertPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	err := x.payments.Create(ctx, payment)
	if errors.Is(err, repository.ErrDuplicatePayment) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

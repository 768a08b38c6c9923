// internal/service/checkout_session.go
package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/gateway"
)

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Session, error)
}

type CheckoutSessionResult struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// CheckoutSessionFactory opens a gateway checkout for a user's cart.
type CheckoutSessionFactory struct {
	gateway  SessionCreator
	carts    CartStore
	currency string
	logger   *zap.Logger
}

func NewCheckoutSessionFactory(gw SessionCreator, carts CartStore, currency string, logger *zap.Logger) *CheckoutSessionFactory {
	return &CheckoutSessionFactory{gateway: gw, carts: carts, currency: currency, logger: logger}
}

// Create validates the cart and opens a session whose metadata carries
// userId, cartId and amount. Repeated requests for an unchanged cart and
// amount reuse the gateway's idempotency key.
func (f *CheckoutSessionFactory) Create(ctx context.Context, userID, cartID string, amount decimal.Decimal) (*CheckoutSessionResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cart, err := f.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", cartID, err)
	}
	if cart == nil || cart.UserID != userID || cart.IsEmpty() {
		return nil, ErrCartNotReady
	}

	amount = amount.Round(2)
	session, err := f.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		UserID:         userID,
		CartID:         cartID,
		Amount:         amount,
		Currency:       f.currency,
		IdempotencyKey: fmt.Sprintf("checkout:%s:%s:%d", cartID, amount.StringFixed(2), cart.UpdatedAt.UnixNano()),
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
		zap.String("cart_id", cartID),
		zap.String("amount", amount.StringFixed(2)))

	return &CheckoutSessionResult{SessionID: session.ID, RedirectURL: session.URL}, nil
}

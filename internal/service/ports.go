// internal/service/ports.go
package service

import (
	"context"
	"time"

	"order-reconciler/internal/gateway"
	"order-reconciler/internal/models"
)

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByGatewaySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	MarkCartConsumed(ctx context.Context, orderID string, at time.Time) error
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
}

type CartStore interface {
	GetByID(ctx context.Context, cartID string) (*models.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type UserStatsStore interface {
	RecordOrder(ctx context.Context, userID string, orderedAt time.Time) error
}

type UnresolvedStore interface {
	Record(ctx context.Context, rec *models.UnresolvedMaterialization) error
	Resolve(ctx context.Context, sessionID string) error
	List(ctx context.Context, limit int) ([]*models.UnresolvedMaterialization, error)
}

type PricingConfigSource interface {
	PricingConfig(ctx context.Context) (models.PricingConfig, error)
}

// Notifier tells the customer their order is confirmed.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order, payment *models.Payment) error
}

// Gateway is the checkout gateway as seen by the reconciler.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Session, error)
	GetSession(ctx context.Context, sessionID string) (*gateway.Session, error)
	ParseWebhookEvent(payload []byte, signature string) (*gateway.Event, error)
}

// Materializer turns a confirmed payment into an order.
type Materializer interface {
	Materialize(ctx context.Context, req MaterializeRequest) (*MaterializeResult, error)
}

var _ Gateway = (*gateway.StripeClient)(nil)

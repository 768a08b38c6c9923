// internal/service/materializer.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/gateway"
	"order-reconciler/internal/metrics"
	"order-reconciler/internal/models"
)

const orderCreatedNote = "created from confirmed payment"

// SessionMetadata is what checkout creation stored on the gateway session.
type SessionMetadata struct {
	UserID         string
	CartID         string
	ExpectedAmount decimal.Decimal
}

// ParseSessionMetadata requires userId and cartId. amount is optional but
// must parse when present.
func ParseSessionMetadata(md map[string]string) (SessionMetadata, error) {
	meta := SessionMetadata{
		UserID: strings.TrimSpace(md[gateway.MetadataUserID]),
		CartID: strings.TrimSpace(md[gateway.MetadataCartID]),
	}
	if meta.UserID == "" || meta.CartID == "" {
		return SessionMetadata{}, fmt.Errorf("%w: userId and cartId are required", ErrInvalidSessionMetadata)
	}
	if raw := strings.TrimSpace(md[gateway.MetadataAmount]); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return SessionMetadata{}, fmt.Errorf("%w: amount %q", ErrInvalidSessionMetadata, raw)
		}
		meta.ExpectedAmount = amount
	}
	return meta, nil
}

type MaterializeRequest struct {
	SessionID string
	// TransactionID defaults to SessionID.
	TransactionID   string
	Metadata        SessionMetadata
	PaidAmount      decimal.Decimal
	Currency        string
	Method          string
	PaymentIntentID string
	GatewayResponse json.RawMessage
}

// RequestFromSession builds the materialization input for a paid session.
func RequestFromSession(s *gateway.Session, meta SessionMetadata) MaterializeRequest {
	return MaterializeRequest{
		SessionID:       s.ID,
		TransactionID:   s.ID,
		Metadata:        meta,
		PaidAmount:      s.AmountTotal,
		Currency:        s.Currency,
		Method:          models.PaymentMethodCard,
		PaymentIntentID: s.PaymentIntentID,
		GatewayResponse: s.Raw,
	}
}

// MaterializeResult is the single Order and Payment for a session. Created
// is true only for the caller whose Payment insert succeeded.
type MaterializeResult struct {
	Order   *models.Order
	Payment *models.Payment
	Created bool
}

type MaterializerDeps struct {
	Orders     OrderStore
	Payments   PaymentStore
	Carts      CartStore
	Stats      UserStatsStore
	Unresolved UnresolvedStore
	Pricing    PricingConfigSource
	Notifier   Notifier
	Metrics    *metrics.Metrics
}

// OrderMaterializer turns one paid checkout session into exactly one Order
// and one Payment. It holds no locks: the webhook and the client verify
// call may run it concurrently for the same session, and the unique
// constraints behind IdempotencyIndex decide the winner.
type OrderMaterializer struct {
	index      *IdempotencyIndex
	orders     OrderStore
	carts      CartStore
	stats      UserStatsStore
	unresolved UnresolvedStore
	pricing    PricingConfigSource
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewOrderMaterializer(deps MaterializerDeps, logger *zap.Logger) *OrderMaterializer {
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	return &OrderMaterializer{
		index:      NewIdempotencyIndex(deps.Orders, deps.Payments),
		orders:     deps.Orders,
		carts:      deps.Carts,
		stats:      deps.Stats,
		unresolved: deps.Unresolved,
		pricing:    deps.Pricing,
		notifier:   deps.Notifier,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Materialize is safe to call any number of times, concurrently, for the
// same session. It returns ErrUnresolvedMaterialization when the payment
// cannot be tied to an order or a cart.
func (m *OrderMaterializer) Materialize(ctx context.Context, req MaterializeRequest) (*MaterializeResult, error) {
	if req.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if req.TransactionID == "" {
		req.TransactionID = req.SessionID
	}

	start := time.Now()
	res, outcome, err := m.materialize(ctx, req)
	switch {
	case errors.Is(err, ErrUnresolvedMaterialization):
		outcome = metrics.OutcomeUnresolved
	case err != nil:
		outcome = metrics.OutcomeError
	}
	m.metrics.Materialization(outcome, time.Since(start))
	return res, err
}

func (m *OrderMaterializer) materialize(ctx context.Context, req MaterializeRequest) (*MaterializeResult, string, error) {
	log := m.logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("user_id", req.Metadata.UserID),
		zap.String("cart_id", req.Metadata.CartID),
	)

	if res, outcome, err := m.resolveExisting(ctx, req, log); err != nil || res != nil {
		return res, outcome, err
	}

	cart, err := m.carts.GetByID(ctx, req.Metadata.CartID)
	if err != nil {
		return nil, "", fmt.Errorf("load cart %s: %w", req.Metadata.CartID, err)
	}
	if reason := cartProblem(cart, req.Metadata.UserID); reason != "" {
		// A concurrent caller may have materialized and cleared the cart
		// between our lookup and the cart read.
		if res, outcome, err := m.resolveExisting(ctx, req, log); err != nil || res != nil {
			return res, outcome, err
		}
		m.recordUnresolved(ctx, req, reason, log)
		return nil, "", ErrUnresolvedMaterialization
	}

	cfg, err := m.pricing.PricingConfig(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load pricing config: %w", err)
	}
	breakdown := SnapshotPricing(cart.Items, cart.DiscountSummary.Amount(), cfg)
	m.reconcileAmount(req, breakdown, log)

	now := m.now().UTC()
	order := newOrder(req, cart, breakdown, now)
	inserted, err := m.index.TryInsertOrder(ctx, order)
	if err != nil {
		return nil, "", fmt.Errorf("insert order: %w", err)
	}
	if !inserted {
		m.metrics.IdempotencyConflict("order")
		log.Info("order already created by a concurrent confirmation")
		return m.fetchWinner(ctx, req, log)
	}

	payment := newPayment(req, order, now)
	inserted, err = m.index.TryInsertPayment(ctx, payment)
	if err != nil {
		// The order stays; the next confirmation recovers the payment.
		return nil, "", fmt.Errorf("insert payment for order %s: %w", order.ID, err)
	}
	if !inserted {
		m.metrics.IdempotencyConflict("payment")
		log.Info("payment already recorded by a concurrent confirmation")
		return m.fetchWinner(ctx, req, log)
	}

	log.Info("order materialized",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_id", payment.ID),
		zap.String("total_cost", breakdown.TotalCost.StringFixed(2)))

	m.afterPaymentInserted(ctx, order, payment, log)
	return &MaterializeResult{Order: order, Payment: payment, Created: true}, metrics.OutcomeCreated, nil
}

// resolveExisting covers the fast path (payment exists) and the slow path
// (order exists without its payment). It returns a nil result when neither
// record exists.
func (m *OrderMaterializer) resolveExisting(ctx context.Context, req MaterializeRequest, log *zap.Logger) (*MaterializeResult, string, error) {
	order, payment, err := m.index.FindExisting(ctx, req.SessionID, req.TransactionID)
	if err != nil {
		return nil, "", err
	}
	if payment != nil {
		m.ensureCartConsumed(ctx, order, log)
		return &MaterializeResult{Order: order, Payment: payment}, metrics.OutcomeExisting, nil
	}
	if order == nil {
		return nil, "", nil
	}

	payment = newPayment(req, order, m.now().UTC())
	inserted, err := m.index.TryInsertPayment(ctx, payment)
	if err != nil {
		return nil, "", fmt.Errorf("insert missing payment for order %s: %w", order.ID, err)
	}
	if !inserted {
		m.metrics.IdempotencyConflict("payment")
		order, payment, err = m.index.FindExisting(ctx, req.SessionID, req.TransactionID)
		if err != nil {
			return nil, "", err
		}
		if payment == nil {
			return nil, "", fmt.Errorf("payment for transaction %s conflicted but cannot be read", req.TransactionID)
		}
		m.ensureCartConsumed(ctx, order, log)
		return &MaterializeResult{Order: order, Payment: payment}, metrics.OutcomeExisting, nil
	}

	log.Warn("recovered missing payment for existing order",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID))
	m.afterPaymentInserted(ctx, order, payment, log)
	return &MaterializeResult{Order: order, Payment: payment, Created: true}, metrics.OutcomeRecoveredPayment, nil
}

func (m *OrderMaterializer) fetchWinner(ctx context.Context, req MaterializeRequest, log *zap.Logger) (*MaterializeResult, string, error) {
	res, outcome, err := m.resolveExisting(ctx, req, log)
	if err != nil {
		return nil, "", err
	}
	if res == nil {
		return nil, "", fmt.Errorf("conflicting records for session %s cannot be read", req.SessionID)
	}
	return res, outcome, nil
}

// afterPaymentInserted runs only for the caller that inserted the payment.
// Every step is best-effort and logged on failure.
func (m *OrderMaterializer) afterPaymentInserted(ctx context.Context, order *models.Order, payment *models.Payment, log *zap.Logger) {
	m.consumeCart(ctx, order, log)

	if err := m.stats.RecordOrder(ctx, order.UserID, order.CreatedAt); err != nil {
		log.Error("failed to update user stats", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := m.notifier.OrderConfirmed(ctx, order, payment); err != nil {
		log.Error("failed to send order confirmation", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := m.unresolved.Resolve(ctx, order.Metadata.GatewaySessionID); err != nil {
		log.Warn("failed to clear unresolved record", zap.Error(err))
	}
}

// ensureCartConsumed re-clears the cart only while the order has no
// consumption marker, so a late duplicate never empties a refilled cart.
func (m *OrderMaterializer) ensureCartConsumed(ctx context.Context, order *models.Order, log *zap.Logger) {
	if order.CartConsumedAt != nil {
		return
	}
	m.consumeCart(ctx, order, log)
}

func (m *OrderMaterializer) consumeCart(ctx context.Context, order *models.Order, log *zap.Logger) {
	if err := m.carts.Clear(ctx, order.Metadata.CartID); err != nil {
		log.Error("failed to clear cart; next confirmation retries",
			zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	at := m.now().UTC()
	if err := m.orders.MarkCartConsumed(ctx, order.ID, at); err != nil {
		log.Error("failed to mark cart consumed", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	order.CartConsumedAt = &at
}

func (m *OrderMaterializer) reconcileAmount(req MaterializeRequest, breakdown models.PricingBreakdown, log *zap.Logger) {
	paid := req.PaidAmount.Round(2)
	if paid.Equal(breakdown.TotalCost) {
		return
	}
	m.metrics.AmountMismatch()
	log.Warn("paid amount differs from recomputed order total",
		zap.String("paid_amount", paid.StringFixed(2)),
		zap.String("computed_total", breakdown.TotalCost.StringFixed(2)),
		zap.String("checkout_amount", req.Metadata.ExpectedAmount.StringFixed(2)))
}

func (m *OrderMaterializer) recordUnresolved(ctx context.Context, req MaterializeRequest, reason string, log *zap.Logger) {
	log.Error("payment succeeded but order could not be materialized",
		zap.String("reason", reason),
		zap.String("paid_amount", req.PaidAmount.StringFixed(2)),
		zap.String("currency", req.Currency))

	now := m.now().UTC()
	rec := &models.UnresolvedMaterialization{
		SessionID:   req.SessionID,
		UserID:      req.Metadata.UserID,
		CartID:      req.Metadata.CartID,
		PaidAmount:  req.PaidAmount,
		Currency:    strings.ToUpper(req.Currency),
		Reason:      reason,
		Attempts:    1,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if err := m.unresolved.Record(ctx, rec); err != nil {
		log.Error("failed to record unresolved materialization", zap.Error(err))
	}
}

func cartProblem(cart *models.Cart, userID string) string {
	switch {
	case cart == nil:
		return "cart not found"
	case cart.UserID != "" && cart.UserID != userID:
		return "cart belongs to another user"
	case cart.IsEmpty():
		return "cart is empty"
	}
	return ""
}

func newOrder(req MaterializeRequest, cart *models.Cart, breakdown models.PricingBreakdown, now time.Time) *models.Order {
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, item.ToOrderItem())
	}
	return &models.Order{
		ID:          uuid.New().String(),
		OrderNumber: newNumber("ORD", now),
		UserID:      req.Metadata.UserID,
		Items:       items,
		Pricing:     breakdown,
		Status:      models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.OrderStatusPending, Note: orderCreatedNote, ChangedAt: now},
		},
		Metadata: models.OrderMetadata{
			GatewaySessionID: req.SessionID,
			CartID:           req.Metadata.CartID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newPayment(req MaterializeRequest, order *models.Order, now time.Time) *models.Payment {
	method := req.Method
	if method == "" {
		method = models.PaymentMethodCard
	}
	return &models.Payment{
		ID:                     uuid.New().String(),
		PaymentNumber:          newNumber("PAY", now),
		OrderID:                order.ID,
		UserID:                 order.UserID,
		Amount:                 req.PaidAmount.Round(2),
		Currency:               strings.ToUpper(req.Currency),
		Method:                 method,
		Status:                 models.PaymentStatusPaid,
		TransactionID:          req.TransactionID,
		GatewayPaymentIntentID: req.PaymentIntentID,
		GatewayResponse:        req.GatewayResponse,
		CreatedAt:              now,
	}
}

// newNumber builds a display id like ORD-20260301-9F86D081.
func newNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

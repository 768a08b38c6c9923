package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/metrics"
	"order-reconciler/internal/models"
	"order-reconciler/internal/repository"
)

// memOrders enforces the gateway_session_id unique constraint in memory.
type memOrders struct {
	mu        sync.Mutex
	byID      map[string]*models.Order
	bySession map[string]string
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{byID: map[string]*models.Order{}, bySession: map[string]string{}}
}

func (s *memOrders) Create(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.bySession[o.Metadata.GatewaySessionID]; ok {
		return repository.ErrDuplicateOrder
	}
	cp := *o
	s.byID[o.ID] = &cp
	s.bySession[o.Metadata.GatewaySessionID] = o.ID
	return nil
}

func (s *memOrders) GetByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.byID[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *memOrders) GetByGatewaySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	id, ok := s.bySession[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

func (s *memOrders) MarkCartConsumed(_ context.Context, orderID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.byID[orderID]; ok && o.CartConsumedAt == nil {
		t := at
		o.CartConsumedAt = &t
	}
	return nil
}

func (s *memOrders) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// memPayments enforces the transaction_id unique constraint in memory.
type memPayments struct {
	mu       sync.Mutex
	byTx     map[string]*models.Payment
	failNext error
}

func newMemPayments() *memPayments {
	return &memPayments{byTx: map[string]*models.Payment{}}
}

func (s *memPayments) Create(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	if _, ok := s.byTx[p.TransactionID]; ok {
		return repository.ErrDuplicatePayment
	}
	cp := *p
	s.byTx[p.TransactionID] = &cp
	return nil
}

func (s *memPayments) GetByTransactionID(_ context.Context, tx string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byTx[tx]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *memPayments) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byTx)
}

type memCarts struct {
	mu        sync.Mutex
	carts     map[string]*models.Cart
	clears    int
	failClear int
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]*models.Cart{}}
}

func (s *memCarts) put(c *models.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	s.carts[c.ID] = &cp
}

func (s *memCarts) GetByID(_ context.Context, id string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp, nil
}

func (s *memCarts) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failClear > 0 {
		s.failClear--
		return errors.New("mongo unavailable")
	}
	s.clears++
	if c, ok := s.carts[id]; ok {
		c.Items = nil
		c.DiscountSummary = models.DiscountSummary{}
	}
	return nil
}

func (s *memCarts) itemCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[id]; ok {
		return len(c.Items)
	}
	return 0
}

type memStats struct {
	mu     sync.Mutex
	orders map[string]int
	err    error
}

func (s *memStats) RecordOrder(_ context.Context, userID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.orders == nil {
		s.orders = map[string]int{}
	}
	s.orders[userID]++
	return nil
}

func (s *memStats) total(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[userID]
}

type memUnresolved struct {
	mu      sync.Mutex
	records map[string]*models.UnresolvedMaterialization
}

func (s *memUnresolved) Record(_ context.Context, rec *models.UnresolvedMaterialization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]*models.UnresolvedMaterialization{}
	}
	if existing, ok := s.records[rec.SessionID]; ok {
		existing.Attempts++
		existing.Reason = rec.Reason
		return nil
	}
	cp := *rec
	s.records[rec.SessionID] = &cp
	return nil
}

func (s *memUnresolved) Resolve(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *memUnresolved) List(_ context.Context, limit int) ([]*models.UnresolvedMaterialization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.UnresolvedMaterialization
	for _, r := range s.records {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memUnresolved) get(sessionID string) *models.UnresolvedMaterialization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[sessionID]
}

type staticPricing struct {
	cfg models.PricingConfig
}

func (p staticPricing) PricingConfig(context.Context) (models.PricingConfig, error) {
	return p.cfg, nil
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *countingNotifier) OrderConfirmed(_ context.Context, order *models.Order, _ *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, order.ID)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// harness wires a materializer to in-memory stores.
type harness struct {
	orders     *memOrders
	payments   *memPayments
	carts      *memCarts
	stats      *memStats
	unresolved *memUnresolved
	notifier   *countingNotifier
	metrics    *metrics.Metrics
	m          *OrderMaterializer
}

func testPricingConfig() models.PricingConfig {
	return models.PricingConfig{
		DefaultCommissionPercent: decimal.NewFromInt(10),
		CustomsPercent:           decimal.NewFromInt(5),
		InternationalShipping:    decimal.NewFromInt(20),
		FreeShippingThreshold:    decimal.NewFromInt(500),
		SecondaryCurrency:        "EGP",
		SecondaryCurrencyRate:    decimal.NewFromInt(50),
	}
}

func newHarness() *harness {
	h := &harness{
		orders:     newMemOrders(),
		payments:   newMemPayments(),
		carts:      newMemCarts(),
		stats:      &memStats{},
		unresolved: &memUnresolved{},
		notifier:   &countingNotifier{},
		metrics:    metrics.Nop(),
	}
	h.m = NewOrderMaterializer(MaterializerDeps{
		Orders:     h.orders,
		Payments:   h.payments,
		Carts:      h.carts,
		Stats:      h.stats,
		Unresolved: h.unresolved,
		Pricing:    staticPricing{cfg: testPricingConfig()},
		Notifier:   h.notifier,
		Metrics:    h.metrics,
	}, zap.NewNop())
	return h
}

// seedCart stores a cart worth 100.00 of product; with testPricingConfig the
// total is 100 + 20 shipping + 10 commission + 5 customs = 135.00.
func (h *harness) seedCart(cartID, userID string) {
	h.carts.put(&models.Cart{
		ID:     cartID,
		UserID: userID,
		Items: []models.CartItem{
			{Name: "Sneakers", Price: "40.00", Quantity: 2, Store: "shopA"},
			{Name: "Socks", Price: "20.00", Quantity: 1, Store: "shopB"},
		},
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
}

func paidRequest(sessionID, userID, cartID string) MaterializeRequest {
	return MaterializeRequest{
		SessionID:       sessionID,
		Metadata:        SessionMetadata{UserID: userID, CartID: cartID, ExpectedAmount: decimal.RequireFromString("135.00")},
		PaidAmount:      decimal.RequireFromString("135.00"),
		Currency:        "usd",
		PaymentIntentID: "pi_" + sessionID,
		GatewayResponse: []byte(`{"id":"` + sessionID + `"}`),
	}
}

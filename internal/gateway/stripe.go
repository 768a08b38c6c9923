// internal/gateway/stripe.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Checkout session metadata keys written at creation and read back on
// confirmation.
const (
	MetadataUserID = "userId"
	MetadataCartID = "cartId"
	MetadataAmount = "amount"
)

// Event types that can carry a completed payment.
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Config is handed to the client explicitly; nothing is read from globals.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

// Session is the subset of a checkout session the reconciler needs.
type Session struct {
	ID              string
	Paid            bool
	AmountTotal     decimal.Decimal
	Currency        string
	Metadata        map[string]string
	PaymentIntentID string
	URL             string
	// Raw is the gateway's JSON for the session, stored verbatim on the payment.
	Raw json.RawMessage
}

// Event is a verified webhook event. Session is set only for checkout
// session events.
type Event struct {
	ID         string
	Type       string
	APIVersion string
	Session    *Session
}

// CheckoutRequest describes a payment-mode checkout session for one cart.
type CheckoutRequest struct {
	UserID         string
	CartID         string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	IdempotencyKey string
}

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeClient talks to Stripe Checkout and verifies Stripe webhooks.
type StripeClient struct {
	cfg      Config
	sessions stripeSessionAPI
}

func NewStripeClient(cfg Config) (*StripeClient, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	// An empty signing secret makes every self-signed payload verify.
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	sc := client.New(cfg.SecretKey, nil)
	return newStripeClient(cfg, sc.CheckoutSessions), nil
}

func newStripeClient(cfg Config, sessions stripeSessionAPI) *StripeClient {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &StripeClient{cfg: cfg, sessions: sessions}
}

// CreateCheckoutSession opens a hosted checkout for req.Amount. The cart
// and user travel in the session metadata so the confirmation can find
// them again.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = c.cfg.Currency
	}
	description := req.Description
	if description == "" {
		description = "Order checkout"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.CartID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(ToMinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataUserID: req.UserID,
			MetadataCartID: req.CartID,
			MetadataAmount: req.Amount.StringFixed(2),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(s, nil), nil
}

// GetSession re-fetches a session from Stripe.
func (c *StripeClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", sessionID, err)
	}
	return toSession(s, nil), nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and decodes the
// event. Only verification failures wrap ErrInvalidSignature; an event whose
// api_version differs from the library's is still decoded.
func (c *StripeClient) ParseWebhookEvent(payload []byte, signature string) (*Event, error) {
	if c.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, signature, c.cfg.WebhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: decode webhook event: %w", err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type), APIVersion: evt.APIVersion}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	out.Session = toSession(&s, evt.Data.Raw)
	return out, nil
}

func toSession(s *stripe.CheckoutSession, raw json.RawMessage) *Session {
	if raw == nil {
		if s.LastResponse != nil && len(s.LastResponse.RawJSON) > 0 {
			raw = s.LastResponse.RawJSON
		} else if b, err := json.Marshal(s); err == nil {
			raw = b
		}
	}

	out := &Session{
		ID:          s.ID,
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal: FromMinorUnits(s.AmountTotal),
		Currency:    string(s.Currency),
		Metadata:    s.Metadata,
		URL:         s.URL,
		Raw:         raw,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// ToMinorUnits converts a two-decimal amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents to a two-decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

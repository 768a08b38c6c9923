// internal/handler/payment_handler.go
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/service"
	"order-reconciler/pkg/middleware"
)

const (
	signatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = int64(65536)
	confirmationTimeout = 25 * time.Second
)

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type SessionVerifier interface {
	Verify(ctx context.Context, userID, sessionID string) (*service.VerifyResult, error)
}

type CheckoutCreator interface {
	Create(ctx context.Context, userID, cartID string, amount decimal.Decimal) (*service.CheckoutSessionResult, error)
}

type PaymentHandler struct {
	webhooks WebhookProcessor
	verifier SessionVerifier
	checkout CheckoutCreator
	logger   *zap.Logger
}

func NewPaymentHandler(webhooks WebhookProcessor, verifier SessionVerifier, checkout CheckoutCreator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		webhooks: webhooks,
		verifier: verifier,
		checkout: checkout,
		logger:   logger,
	}
}

// StripeWebhook handles POST /payments/webhook
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable request body"})
		return
	}

	ctx, cancel := confirmationContext(c)
	defer cancel()

	if err := h.webhooks.Handle(ctx, payload, c.GetHeader(signatureHeader)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// VerifySession handles GET /payments/sessions/:sessionId/verify
func (h *PaymentHandler) VerifySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id is required"})
		return
	}

	ctx, cancel := confirmationContext(c)
	defer cancel()

	result, err := h.verifier.Verify(ctx, middleware.UserID(c), sessionID)
	switch {
	case errors.Is(err, service.ErrSessionNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": "Session does not belong to this user"})
		return
	case errors.Is(err, service.ErrInvalidSessionMetadata):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Checkout session cannot be matched to a cart"})
		return
	case err != nil:
		h.logger.Error("failed to verify checkout session",
			zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to verify payment"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// confirmationContext is not cancelled when the caller disconnects; only
// confirmationTimeout bounds it.
func confirmationContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), confirmationTimeout)
}

type checkoutRequest struct {
	CartID string          `json:"cartId" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateCheckoutSession handles POST /payments/checkout-sessions
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.checkout.Create(c.Request.Context(), middleware.UserID(c), req.CartID, req.Amount)
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrCartNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("failed to create checkout session",
			zap.String("cart_id", req.CartID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// internal/service/webhook_ingestor.go
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"order-reconciler/internal/gateway"
	"order-reconciler/internal/metrics"
)

// WebhookVerifier is the part of the gateway the ingestor needs.
type WebhookVerifier interface {
	ParseWebhookEvent(payload []byte, signature string) (*gateway.Event, error)
}

// WebhookIngestor is the server-to-server confirmation trigger. Only a bad
// signature is reported back to the gateway; every other outcome is
// acknowledged so the gateway does not retry into the same failure. The
// client verify poll is the second trigger for the same sessions.
type WebhookIngestor struct {
	verifier     WebhookVerifier
	materializer Materializer
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewWebhookIngestor(verifier WebhookVerifier, materializer Materializer, m *metrics.Metrics, logger *zap.Logger) *WebhookIngestor {
	if m == nil {
		m = metrics.Nop()
	}
	return &WebhookIngestor{verifier: verifier, materializer: materializer, metrics: m, logger: logger}
}

// Handle returns an error wrapping ErrInvalidSignature when the payload
// cannot be verified, and nil otherwise.
func (w *WebhookIngestor) Handle(ctx context.Context, payload []byte, signature string) error {
	evt, err := w.verifier.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			w.metrics.WebhookEvent("", metrics.WebhookInvalidSignature)
			w.logger.Warn("rejected webhook with invalid signature", zap.Error(err))
			return err
		}
		w.metrics.WebhookEvent("", metrics.WebhookFailed)
		w.logger.Error("failed to decode webhook event", zap.Error(err))
		return nil
	}

	log := w.logger.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

	if evt.Type != gateway.EventCheckoutCompleted && evt.Type != gateway.EventCheckoutAsyncPaymentSucceed {
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookIgnored)
		log.Debug("ignoring webhook event type")
		return nil
	}
	if evt.Session == nil || !evt.Session.Paid {
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookIgnored)
		log.Info("checkout session not paid yet, acknowledging")
		return nil
	}

	log = log.With(zap.String("session_id", evt.Session.ID))
	meta, err := ParseSessionMetadata(evt.Session.Metadata)
	if err != nil {
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookFailed)
		log.Error("paid checkout session has unusable metadata", zap.Error(err))
		return nil
	}

	res, err := w.materializer.Materialize(ctx, RequestFromSession(evt.Session, meta))
	switch {
	case errors.Is(err, ErrUnresolvedMaterialization):
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookFailed)
		log.Warn("webhook acknowledged, order pending reconciliation")
	case err != nil:
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookFailed)
		log.Error("failed to materialize order from webhook", zap.Error(err))
	default:
		w.metrics.WebhookEvent(evt.Type, metrics.WebhookHandled)
		log.Info("webhook processed",
			zap.String("order_id", res.Order.ID),
			zap.Bool("created", res.Created))
	}
	return nil
}

// internal/service/client_verifier.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"order-reconciler/internal/gateway"
)

const (
	msgPaymentNotCompleted = "payment not completed"
	msgPendingReconcile    = "payment succeeded, order pending reconciliation"
)

// SessionFetcher re-reads a checkout session from the gateway.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*gateway.Session, error)
}

// VerifyResult is returned to the browser after checkout redirect.
type VerifyResult struct {
	Paid        bool   `json:"paid"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ClientVerifier is the browser-driven confirmation trigger. It never
// trusts the client about payment state; the session is re-fetched from
// the gateway on every call.
type ClientVerifier struct {
	sessions     SessionFetcher
	materializer Materializer
	logger       *zap.Logger
}

func NewClientVerifier(sessions SessionFetcher, materializer Materializer, logger *zap.Logger) *ClientVerifier {
	return &ClientVerifier{sessions: sessions, materializer: materializer, logger: logger}
}

func (v *ClientVerifier) Verify(ctx context.Context, userID, sessionID string) (*VerifyResult, error) {
	session, err := v.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}

	if session.Metadata[gateway.MetadataUserID] != userID {
		v.logger.Warn("verify attempted on another user's session",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID))
		return nil, ErrSessionNotOwned
	}

	if !session.Paid {
		return &VerifyResult{Paid: false, Message: msgPaymentNotCompleted}, nil
	}

	meta, err := ParseSessionMetadata(session.Metadata)
	if err != nil {
		v.logger.Error("paid checkout session has unusable metadata",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	res, err := v.materializer.Materialize(ctx, RequestFromSession(session, meta))
	if errors.Is(err, ErrUnresolvedMaterialization) {
		return &VerifyResult{Paid: true, Message: msgPendingReconcile}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("materialize order: %w", err)
	}

	return &VerifyResult{
		Paid:        true,
		OrderID:     res.Order.ID,
		OrderNumber: res.Order.OrderNumber,
	}, nil
}

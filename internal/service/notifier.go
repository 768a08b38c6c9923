// internal/service/notifier.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/models"
)

const (
	OrderConfirmedEvent   = "order.confirmed"
	OrderConfirmedChannel = "orders.confirmed"
)

// OrderConfirmedMessage is published once per materialized order.
type OrderConfirmedMessage struct {
	Event         string    `json:"event"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	PaymentID     string    `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) (int64, error)
}

// RedisNotifier publishes confirmations for the notification workers.
type RedisNotifier struct {
	client  publisher
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(client publisher, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = OrderConfirmedChannel
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) OrderConfirmed(ctx context.Context, order *models.Order, payment *models.Payment) error {
	data, err := json.Marshal(newConfirmedMessage(order, payment))
	if err != nil {
		return fmt.Errorf("marshal order confirmation: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, data)
	if err != nil {
		return fmt.Errorf("publish order confirmation: %w", err)
	}
	n.logger.Debug("order confirmation published",
		zap.String("order_id", order.ID),
		zap.Int64("receivers", receivers))
	return nil
}

// LogNotifier is used when no message bus is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmed(_ context.Context, order *models.Order, payment *models.Payment) error {
	n.logger.Info("order confirmed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.String("payment_id", payment.ID))
	return nil
}

func newConfirmedMessage(order *models.Order, payment *models.Payment) OrderConfirmedMessage {
	return OrderConfirmedMessage{
		Event:         OrderConfirmedEvent,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount.StringFixed(2),
		Currency:      payment.Currency,
		OccurredAt:    payment.CreatedAt,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-reconciler/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testOrder() *models.Order {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:          "ord-1",
		OrderNumber: "ORD-20260301-ABCD1234",
		UserID:      "user-1",
		Items: []models.OrderItem{
			{Name: "Sneakers", Price: decimal.RequireFromString("50.00"), Quantity: 2, Store: "shopA"},
		},
		Pricing: models.PricingBreakdown{TotalCost: decimal.RequireFromString("110.00")},
		Status:  models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.OrderStatusPending, Note: "created", ChangedAt: now},
		},
		Metadata:  models.OrderMetadata{GatewaySessionID: "cs_1", CartID: "cart-1"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted"},
		{
			name:    "duplicate session",
			execErr: &pq.Error{Code: "23505", Constraint: orderSessionConstraint},
			wantErr: ErrDuplicateOrder,
		},
		{
			name:    "other failure",
			execErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewOrderRepository(db)
			order := testOrder()

			exec := mock.ExpectExec("INSERT INTO orders").
				WithArgs(order.ID, order.OrderNumber, order.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(),
					order.Status, sqlmock.AnyArg(), "cs_1", "cart-1", order.CreatedAt, order.UpdatedAt)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err := repo.Create(context.Background(), order)
			switch {
			case tt.execErr == nil:
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrDuplicateOrder)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrderRepository_GetByGatewaySessionID(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM orders WHERE gateway_session_id").
			WithArgs("cs_missing").
			WillReturnError(sql.ErrNoRows)

		order, err := NewOrderRepository(db).GetByGatewaySessionID(context.Background(), "cs_missing")
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		consumed := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
		created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{
			"id", "order_number", "user_id", "items", "pricing", "status", "status_history",
			"gateway_session_id", "cart_id", "cart_consumed_at", "created_at", "updated_at",
		}).AddRow(
			"ord-1", "ORD-1", "user-1",
			[]byte(`[{"name":"Sneakers","price":"50","quantity":2,"store":"shopA"}]`),
			[]byte(`{"total_cost":"110.00"}`),
			"pending",
			[]byte(`[{"status":"pending","note":"created"}]`),
			"cs_1", "cart-1", consumed, created, created,
		)
		mock.ExpectQuery("FROM orders WHERE gateway_session_id").WithArgs("cs_1").WillReturnRows(rows)

		order, err := NewOrderRepository(db).GetByGatewaySessionID(context.Background(), "cs_1")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "ord-1", order.ID)
		assert.Equal(t, "cs_1", order.Metadata.GatewaySessionID)
		require.Len(t, order.Items, 1)
		assert.True(t, order.Items[0].Price.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, "110", order.Pricing.TotalCost.String())
		require.NotNil(t, order.CartConsumedAt)
		assert.Equal(t, consumed, *order.CartConsumedAt)
	})
}

func TestOrderRepository_MarkCartConsumed(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE orders\s+SET cart_consumed_at`).
		WithArgs(at, "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewOrderRepository(db).MarkCartConsumed(context.Background(), "ord-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

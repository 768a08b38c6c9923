package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-reconciler/internal/models"
)

type stubAuditStore struct {
	rows      []*models.PaymentAuditRow
	rowsErr   error
	orphaned  int
	orphanErr error
}

func (s *stubAuditStore) PaymentsBetween(context.Context, time.Time, time.Time) ([]*models.PaymentAuditRow, error) {
	return s.rows, s.rowsErr
}

func (s *stubAuditStore) CountOrdersWithoutPayment(context.Context, time.Time, time.Time) (int, error) {
	return s.orphaned, s.orphanErr
}

func auditRow(tx, paid, recorded string) *models.PaymentAuditRow {
	return &models.PaymentAuditRow{
		TransactionID:    tx,
		GatewaySessionID: tx,
		PaidAmount:       decimal.RequireFromString(paid),
		RecordedTotal:    decimal.RequireFromString(recorded),
		Currency:         "USD",
	}
}

func TestExportPayments(t *testing.T) {
	store := &stubAuditStore{
		rows: []*models.PaymentAuditRow{
			auditRow("cs_1", "135.00", "135.00"),
			auditRow("cs_2", "80.00", "82.50"),
		},
		orphaned: 1,
	}
	svc := NewAuditService(store, &memUnresolved{}, zap.NewNop())
	fixed := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.ExportPayments(context.Background(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, report.PaymentCount)
	assert.Equal(t, 1, report.MismatchCount)
	assert.Equal(t, 1, report.OrphanedOrders)
	assert.False(t, report.Rows[0].AmountMismatch)
	assert.True(t, report.Rows[1].AmountMismatch)
	assert.Equal(t, "215.00", report.TotalPaid.StringFixed(2))
	assert.Equal(t, "217.50", report.TotalRecorded.StringFixed(2))
	assert.Equal(t, fixed, report.GeneratedAt)
}

func TestExportPayments_EmptyRange(t *testing.T) {
	svc := NewAuditService(&stubAuditStore{}, &memUnresolved{}, zap.NewNop())
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	report, err := svc.ExportPayments(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.NotNil(t, report.Rows)
	assert.Zero(t, report.PaymentCount)
	assert.True(t, report.TotalPaid.IsZero())
}

func TestExportPayments_InvalidRange(t *testing.T) {
	svc := NewAuditService(&stubAuditStore{}, &memUnresolved{}, zap.NewNop())
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.ExportPayments(context.Background(), start, start)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.ExportPayments(context.Background(), start, start.AddDate(0, 6, 0))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestExportPayments_StoreErrors(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	svc := NewAuditService(&stubAuditStore{rowsErr: errors.New("db down")}, &memUnresolved{}, zap.NewNop())
	_, err := svc.ExportPayments(context.Background(), start, start.AddDate(0, 0, 7))
	assert.Error(t, err)

	// A failed orphan count still returns the payment rows.
	svc = NewAuditService(&stubAuditStore{
		rows:      []*models.PaymentAuditRow{auditRow("cs_1", "10.00", "10.00")},
		orphanErr: errors.New("timeout"),
	}, &memUnresolved{}, zap.NewNop())
	report, err := svc.ExportPayments(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, report.PaymentCount)
	assert.Zero(t, report.OrphanedOrders)
}

func TestListUnresolved(t *testing.T) {
	unresolved := &memUnresolved{}
	for _, id := range []string{"cs_1", "cs_2", "cs_3"} {
		require.NoError(t, unresolved.Record(context.Background(), &models.UnresolvedMaterialization{SessionID: id, Attempts: 1}))
	}
	svc := NewAuditService(&stubAuditStore{}, unresolved, zap.NewNop())

	all, err := svc.ListUnresolved(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := svc.ListUnresolved(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, some, 2)

	empty, err := NewAuditService(&stubAuditStore{}, &memUnresolved{}, zap.NewNop()).ListUnresolved(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

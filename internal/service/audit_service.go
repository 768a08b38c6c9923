// internal/service/audit_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"order-reconciler/internal/models"
)

const (
	defaultUnresolvedLimit = 50
	maxUnresolvedLimit     = 500
	maxAuditRange          = 92 * 24 * time.Hour
)

type AuditStore interface {
	PaymentsBetween(ctx context.Context, start, end time.Time) ([]*models.PaymentAuditRow, error)
	CountOrdersWithoutPayment(ctx context.Context, start, end time.Time) (int, error)
}

// AuditService produces the payment export finance uses to match gateway
// payouts against orders.
type AuditService struct {
	store      AuditStore
	unresolved UnresolvedStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuditService(store AuditStore, unresolved UnresolvedStore, logger *zap.Logger) *AuditService {
	return &AuditService{store: store, unresolved: unresolved, logger: logger, now: time.Now}
}

// ExportPayments covers [start, end). Rows carry both the transaction id and
// the gateway session id so they can be matched against gateway reports.
func (s *AuditService) ExportPayments(ctx context.Context, start, end time.Time) (*models.PaymentAuditReport, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidDateRange)
	}
	if end.Sub(start) > maxAuditRange {
		return nil, fmt.Errorf("%w: range must not exceed %d days", ErrInvalidDateRange, int(maxAuditRange.Hours()/24))
	}

	s.logger.Info("starting payment audit export",
		zap.Time("start_date", start),
		zap.Time("end_date", end))

	rows, err := s.store.PaymentsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	report := &models.PaymentAuditReport{
		StartDate:     start,
		EndDate:       end,
		Rows:          rows,
		PaymentCount:  len(rows),
		TotalPaid:     decimal.Zero,
		TotalRecorded: decimal.Zero,
		GeneratedAt:   s.now().UTC(),
	}
	if report.Rows == nil {
		report.Rows = []*models.PaymentAuditRow{}
	}

	var mismatched []string
	for _, row := range rows {
		row.AmountMismatch = !row.PaidAmount.Equal(row.RecordedTotal)
		if row.AmountMismatch {
			report.MismatchCount++
			mismatched = append(mismatched, row.TransactionID)
		}
		report.TotalPaid = report.TotalPaid.Add(row.PaidAmount)
		report.TotalRecorded = report.TotalRecorded.Add(row.RecordedTotal)
	}

	orphaned, err := s.store.CountOrdersWithoutPayment(ctx, start, end)
	if err != nil {
		s.logger.Error("failed to count orders without payment", zap.Error(err))
	}
	report.OrphanedOrders = orphaned

	if report.MismatchCount == 0 && report.OrphanedOrders == 0 {
		s.logger.Info("payment audit complete - CLEAN",
			zap.Int("payments", report.PaymentCount),
			zap.String("total_paid", report.TotalPaid.StringFixed(2)))
	} else {
		s.logger.Warn("payment audit complete - DISCREPANCIES",
			zap.Int("payments", report.PaymentCount),
			zap.Int("mismatches", report.MismatchCount),
			zap.Int("orphaned_orders", report.OrphanedOrders),
			zap.Strings("mismatched_transactions", mismatched))
	}

	return report, nil
}

// ListUnresolved returns the most recently seen unresolved sessions.
func (s *AuditService) ListUnresolved(ctx context.Context, limit int) ([]*models.UnresolvedMaterialization, error) {
	if limit <= 0 {
		limit = defaultUnresolvedLimit
	}
	if limit > maxUnresolvedLimit {
		limit = maxUnresolvedLimit
	}
	recs, err := s.unresolved.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*models.UnresolvedMaterialization{}
	}
	return recs, nil
}

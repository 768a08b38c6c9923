// internal/handler/admin_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-reconciler/internal/models"
	"order-reconciler/internal/service"
)

const dateLayout = "2006-01-02"

type Auditor interface {
	ExportPayments(ctx context.Context, start, end time.Time) (*models.PaymentAuditReport, error)
	ListUnresolved(ctx context.Context, limit int) ([]*models.UnresolvedMaterialization, error)
}

type PricingSettings interface {
	PricingConfig(ctx context.Context) (models.PricingConfig, error)
	UpdatePricingConfig(ctx context.Context, cfg models.PricingConfig) error
}

// AdminHandler serves the operator endpoints. Routes are mounted behind
// the admin role check.
type AdminHandler struct {
	audit    Auditor
	settings PricingSettings
	logger   *zap.Logger
}

func NewAdminHandler(audit Auditor, settings PricingSettings, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{audit: audit, settings: settings, logger: logger}
}

// PaymentAudit handles GET /admin/payments/audit?start=YYYY-MM-DD&end=YYYY-MM-DD.
// Both dates are inclusive.
func (h *AdminHandler) PaymentAudit(c *gin.Context) {
	start, err := time.Parse(dateLayout, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be a YYYY-MM-DD date"})
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be a YYYY-MM-DD date"})
		return
	}

	report, err := h.audit.ExportPayments(c.Request.Context(), start, end.AddDate(0, 0, 1))
	if errors.Is(err, service.ErrInvalidDateRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to export payment audit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export payments"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListUnresolved handles GET /admin/materializations/unresolved
func (h *AdminHandler) ListUnresolved(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = n
	}

	records, err := h.audit.ListUnresolved(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list unresolved materializations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list unresolved sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unresolved": records, "count": len(records)})
}

// GetPricingSettings handles GET /admin/settings/pricing
func (h *AdminHandler) GetPricingSettings(c *gin.Context) {
	cfg, err := h.settings.PricingConfig(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load pricing settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pricing settings"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdatePricingSettings handles PUT /admin/settings/pricing
func (h *AdminHandler) UpdatePricingSettings(c *gin.Context) {
	var cfg models.PricingConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.UpdatePricingConfig(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, service.ErrInvalidPricingConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to update pricing settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pricing settings"})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/service/reporting"
)

const defaultLowStockThreshold = 5

// ReportHandler exposes the multi-store report aggregator and the
// low-stock sweep.
type ReportHandler struct {
	svc    *reporting.Service
	logger *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// Query merges withdrawal records across stores. store=all (the
// default) fans out to every registered store; a single key narrows to
// one store. Failing stores show up only as skippedStores entries.
func (h *ReportHandler) Query(c *gin.Context) {
	selector := c.Query("store")
	if selector == "" {
		selector = reporting.SelectorAll
	}

	dateRange, err := dateRangeFromQuery(c)
	if err != nil {
		writeValidationError(c, err)
		return
	}

	report, err := h.svc.Query(c.Request.Context(), selector, dateRange)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// LowStock returns store-tagged equipment lines under the threshold
// query parameter (default 5).
func (h *ReportHandler) LowStock(c *gin.Context) {
	threshold := defaultLowStockThreshold
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeValidationError(c, errors.New("threshold must be a positive integer"))
			return
		}
		threshold = parsed
	}

	alerts, err := h.svc.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.logger.Error("low stock sweep failed", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

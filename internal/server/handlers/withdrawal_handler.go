package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
	"github.com/cimara/stockledger/internal/service/withdrawal"
)

// WithdrawalHandler exposes the withdrawal processor and per-store
// transaction history over HTTP. Authentication is the caller layer's
// concern; the store key arrives already authorized.
type WithdrawalHandler struct {
	svc    *withdrawal.Service
	stores *registry.Registry
	logger *zap.Logger
}

// NewWithdrawalHandler constructs the HTTP handler adapter.
func NewWithdrawalHandler(svc *withdrawal.Service, stores *registry.Registry, logger *zap.Logger) *WithdrawalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalHandler{svc: svc, stores: stores, logger: logger}
}

// Create processes a withdrawal against the store in the path.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid withdrawal payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.svc.Process(c.Request.Context(), c.Param("store"), req.ToServiceRequest())
	if err != nil {
		h.logger.Warn("withdrawal rejected",
			zap.String("store", c.Param("store")),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Transfer processes a warehouse-to-site transfer: a withdrawal whose
// source is the warehouse and whose destination store is required.
func (h *WithdrawalHandler) Transfer(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid transfer payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Error: "invalid request body"})
		return
	}
	if req.DestinationSite == "" {
		writeValidationError(c, errMissingDestination)
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.svc.Process(c.Request.Context(), models.WarehouseKey, req.ToServiceRequest())
	if err != nil {
		h.logger.Warn("transfer rejected",
			zap.String("destination", req.DestinationSite),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List returns one store's withdrawal history, optionally bounded by
// startDate/endDate query parameters.
func (h *WithdrawalHandler) List(c *gin.Context) {
	entry, err := h.stores.Lookup(c.Param("store"))
	if err != nil {
		writeError(c, err)
		return
	}

	dateRange, err := dateRangeFromQuery(c)
	if err != nil {
		writeValidationError(c, err)
		return
	}

	withdrawals, err := entry.Store.ListWithdrawals(c.Request.Context(), dateRange)
	if err != nil {
		h.logger.Error("failed listing withdrawals",
			zap.String("store", entry.Descriptor.Key),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}

var errMissingDestination = errors.New("destinationSite is required for a transfer")

func dateRangeFromQuery(c *gin.Context) (repository.DateRange, error) {
	var r repository.DateRange
	if v := c.Query("startDate"); v != "" {
		start, err := parseDate(v)
		if err != nil {
			return r, err
		}
		r.From = start
	}
	if v := c.Query("endDate"); v != "" {
		end, err := parseDate(v)
		if err != nil {
			return r, err
		}
		r.To = endOfDay(end)
	}
	return r, nil
}

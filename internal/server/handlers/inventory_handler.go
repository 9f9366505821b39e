package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
)

// InventoryHandler exposes per-store equipment reads, stock intake and
// administrative corrections.
type InventoryHandler struct {
	stores *registry.Registry
	logger *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(stores *registry.Registry, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{stores: stores, logger: logger}
}

// List returns the current equipment records of one store.
func (h *InventoryHandler) List(c *gin.Context) {
	entry, err := h.stores.Lookup(c.Param("store"))
	if err != nil {
		writeError(c, err)
		return
	}

	records, err := entry.Store.ListEquipment(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing equipment",
			zap.String("store", entry.Descriptor.Key),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// Add records a stock intake: the named equipment gains the posted
// quantity and is created with the full field set when absent.
func (h *InventoryHandler) Add(c *gin.Context) {
	entry, err := h.stores.Lookup(c.Param("store"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req AddEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid equipment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}

	stored, err := entry.Store.AddEquipment(c.Request.Context(), models.Equipment{
		Name:         req.Name,
		Category:     req.Category,
		SerialNumber: req.SerialNumber,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Location:     req.Location,
		Condition:    req.Condition,
		Price:        req.Price,
	})
	if err != nil {
		h.logger.Error("failed adding equipment",
			zap.String("store", entry.Descriptor.Key),
			zap.String("equipment", req.Name),
			zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stored)
}

// Update applies an administrative field correction. Quantity overwrite
// through this path is reserved for corrections; normal stock movement
// goes through withdrawals and intake.
func (h *InventoryHandler) Update(c *gin.Context) {
	entry, err := h.stores.Lookup(c.Param("store"))
	if err != nil {
		writeError(c, err)
		return
	}

	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid equipment update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(c, err)
		return
	}

	update := repository.EquipmentUpdate{
		Name:         req.Name,
		Category:     req.Category,
		SerialNumber: req.SerialNumber,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Location:     req.Location,
		Condition:    req.Condition,
		Price:        req.Price,
	}
	if err := entry.Store.UpdateEquipment(c.Request.Context(), c.Param("id"), update); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cimara/stockledger/internal/domain/apperr"
)

// errorBody is the uniform error response: a machine-distinguishable
// kind plus a human-readable message.
type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func writeError(c *gin.Context, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, apperr.ErrInsufficientStock):
		status, kind = http.StatusConflict, "insufficient_stock"
	case errors.Is(err, apperr.ErrItemNotFound):
		status, kind = http.StatusNotFound, "item_not_found"
	case errors.Is(err, apperr.ErrStoreNotFound):
		status, kind = http.StatusNotFound, "store_not_found"
	case errors.Is(err, apperr.ErrStoreUnreachable):
		status, kind = http.StatusServiceUnavailable, "store_unreachable"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal error"
	}
	c.JSON(status, errorBody{Kind: kind, Error: message})
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Kind: "validation", Error: err.Error()})
}

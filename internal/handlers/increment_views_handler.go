package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.realgram.engine/internal/store"
)

// PropertyHandler serves the authenticated property counters.
type PropertyHandler struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewPropertyHandler(s store.Store, logger *zap.SugaredLogger) *PropertyHandler {
	return &PropertyHandler{store: s, logger: logger}
}

type incrementViewsRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
}

// IncrementViews applies an atomic +1 to the property's view counter. The
// increment primitive is what makes concurrent views converge; a
// read-modify-write here would lose counts.
func (h *PropertyHandler) IncrementViews(c *gin.Context) {
	var req incrementViewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.store.IncrementPropertyViews(c.Request.Context(), req.PropertyID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	if err != nil {
		h.logger.Errorw("view increment failed", "property_id", req.PropertyID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

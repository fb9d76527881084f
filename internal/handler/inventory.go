package handler

import (
	"net/http"
	"strconv"

	"github.com/sachero10/backend-tienda-ropa/internal/apierror"
	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// LowStock godoc
// @Summary      Low-stock variants
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        threshold query int false "Defaults to LOW_STOCK_THRESHOLD"
// @Success      200 {object} dto.LowStockResponse
// @Router       /inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold := -1
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidationFailed, "threshold must be a non-negative integer", nil))
			return
		}
		threshold = n
	}
	resp, err := h.svc.LowStock(c.Request.Context(), threshold)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movements godoc
// @Summary      Stock movement log
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        variantId query string false "Variant UUID"
// @Param        kind      query string false "sale | adjustment"
// @Param        page      query int    false "Page"
// @Param        limit     query int    false "Page size"
// @Success      200 {object} dto.MovementListResponse
// @Router       /inventory/movements [get]
func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

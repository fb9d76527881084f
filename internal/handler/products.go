package handler

import (
	"net/http"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/middleware"
	"github.com/sachero10/backend-tienda-ropa/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct {
	products  service.ProductService
	inventory service.InventoryService
}

func NewProductsHandler(products service.ProductService, inventory service.InventoryService) *ProductsHandler {
	return &ProductsHandler{products: products, inventory: inventory}
}

// Create godoc
// @Summary      Create product
// @Description  Creates a product with its variants. Blank SKUs are generated.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateProductRequest true "Product"
// @Success      201  {object} dto.ProductCreatedResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      409  {object} apierror.APIError
// @Router       /products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        search   query string false "Name, brand or SKU fragment"
// @Param        category query string false "Exact category"
// @Param        brand    query string false "Exact brand"
// @Success      200 {array} dto.ProductResponse
// @Router       /products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string true  "Product UUID"
// @Param        deleted query bool   false "Include soft-deleted"
// @Success      200 {object} dto.ProductResponse
// @Failure      404 {object} apierror.APIError
// @Router       /products/{id} [get]
func (h *ProductsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.products.Get(c.Request.Context(), id, c.Query("deleted") == "true")
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Update product
// @Description  Updates product fields and upserts variants. Stock of existing variants is not writable here.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                   true "Product UUID"
// @Param        body body     dto.UpdateProductRequest true "Changes"
// @Success      200  {object} dto.ProductResponse
// @Router       /products/{id} [patch]
func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Soft-delete product
// @Tags         products
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} map[string]string
// @Router       /products/{id} [delete]
func (h *ProductsHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// Restore godoc
// @Summary      Restore soft-deleted product
// @Tags         products
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} map[string]string
// @Router       /products/{id}/restore [patch]
func (h *ProductsHandler) Restore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Restore(c.Request.Context(), id); err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product restored"})
}

// AdjustStock godoc
// @Summary      Adjust variant stock
// @Description  Adds a signed delta to the variant's stock. Stock never goes below zero.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                 true "Variant UUID"
// @Param        body body     dto.AdjustStockRequest true "Delta"
// @Success      200  {object} dto.AdjustStockResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /products/variants/{id}/stock [patch]
func (h *ProductsHandler) AdjustStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.inventory.AdjustStock(c.Request.Context(), id, req, middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/middleware"
	"github.com/sachero10/backend-tienda-ropa/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	sales   service.SaleService
	reports service.ReportService
}

func NewSalesHandler(sales service.SaleService, reports service.ReportService) *SalesHandler {
	return &SalesHandler{sales: sales, reports: reports}
}

// CreateSale godoc
// @Summary      Register a sale
// @Description  All-or-nothing: reconciles payments against items and discount, decrements stock and stores the sale, or changes nothing.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateSaleRequest true "Basket and payments"
// @Success      201  {object} dto.SaleCreatedResponse
// @Failure      400  {object} apierror.APIError
// @Failure      500  {object} apierror.APIError
// @Router       /sales [post]
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sales.CreateSale(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeServiceError(c, err, true)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListSales godoc
// @Summary      List sales
// @Description  Committed sales, newest first, with items, variants, products and payments.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page (default 1)"
// @Param        limit query int false "Page size (default 50)"
// @Success      200  {array}  dto.SaleResponse
// @Router       /sales [get]
func (h *SalesHandler) ListSales(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.sales.ListSales(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSale godoc
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Sale UUID"
// @Success      200 {object} dto.SaleResponse
// @Failure      404 {object} apierror.APIError
// @Router       /sales/{id} [get]
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receipt godoc
// @Summary      Sale receipt
// @Tags         sales
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id  path string true "Sale UUID"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.APIError
// @Router       /sales/{id}/receipt [get]
func (h *SalesHandler) Receipt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pdf, err := h.reports.Receipt(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", id))
	c.Data(http.StatusOK, infra.ReceiptContentType, pdf)
}

// Report godoc
// @Summary      Sales report
// @Description  Sales created between start 00:00:00.000Z and end 23:59:59.999Z inclusive.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        start query string true "YYYY-MM-DD"
// @Param        end   query string true "YYYY-MM-DD"
// @Success      200 {object} dto.SalesReportResponse
// @Failure      400 {object} apierror.APIError
// @Router       /sales/report [get]
func (h *SalesHandler) Report(c *gin.Context) {
	var q dto.ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.reports.SalesReport(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportReport godoc
// @Summary      Sales report as XLSX
// @Tags         sales
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        start query string true "YYYY-MM-DD"
// @Param        end   query string true "YYYY-MM-DD"
// @Success      200 {file} binary
// @Router       /sales/report/export [get]
func (h *SalesHandler) ExportReport(c *gin.Context) {
	var q dto.ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	out, err := h.reports.ExportSalesReport(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=sales-%s-%s.xlsx", q.Start, q.End))
	c.Data(http.StatusOK, infra.XLSXContentType, out)
}

// DashboardStats godoc
// @Summary      Dashboard totals
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.DashboardStatsResponse
// @Router       /dashboard/stats [get]
func (h *SalesHandler) DashboardStats(c *gin.Context) {
	resp, err := h.reports.DashboardStats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, resp)
}

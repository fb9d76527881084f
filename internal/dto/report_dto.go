package dto

import "github.com/shopspring/decimal"

// ReportQuery is bound from GET /api/sales/report?start=YYYY-MM-DD&end=YYYY-MM-DD.
type ReportQuery struct {
	Start string `form:"start" validate:"required,datetime=2006-01-02"`
	End   string `form:"end"   validate:"required,datetime=2006-01-02"`
}

type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type PaymentMethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
}

type SalesReportResponse struct {
	Period        ReportPeriod         `json:"period"`
	SalesCount    int                  `json:"salesCount"`
	TotalRevenue  decimal.Decimal      `json:"totalRevenue"`
	TotalDiscount decimal.Decimal      `json:"totalDiscount"`
	ByMethod      []PaymentMethodTotal `json:"byMethod"`
	Sales         []SaleResponse       `json:"sales"`
}

type DashboardStatsResponse struct {
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalSalesCount int64           `json:"totalSalesCount"`
	Currency        string          `json:"currency"`
}

package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleItemRequest struct {
	VariantID   string          `json:"variantId"   validate:"required,uuid"`
	Quantity    int             `json:"quantity"    validate:"required,min=1"`
	PriceAtSale decimal.Decimal `json:"priceAtSale" validate:"min=0"`
}

type SalePaymentRequest struct {
	Method string          `json:"method" validate:"required,max=32"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// CreateSaleRequest is the body of POST /api/sales. Total is optional: when
// present it is checked against payments and items, never trusted.
type CreateSaleRequest struct {
	Total    *decimal.Decimal     `json:"total"`
	Discount *decimal.Decimal     `json:"discount"`
	Items    []SaleItemRequest    `json:"items"    validate:"required,min=1,dive"`
	Payments []SalePaymentRequest `json:"payments" validate:"required,min=1,dive"`
}

// SaleFilter is bound from the query string of GET /api/sales.
type SaleFilter struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=50"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleCreatedResponse struct {
	Message string          `json:"message"`
	SaleID  string          `json:"saleId"`
	Total   decimal.Decimal `json:"total"`
}

type SaleItemResponse struct {
	ID          string           `json:"id"`
	VariantID   string           `json:"variantId"`
	Quantity    int              `json:"quantity"`
	PriceAtSale decimal.Decimal  `json:"priceAtSale"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Variant     *VariantResponse `json:"variant,omitempty"`
}

type SalePaymentResponse struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type SaleResponse struct {
	ID        string                `json:"id"`
	UserID    *string               `json:"userId"`
	Total     decimal.Decimal       `json:"total"`
	Discount  decimal.Decimal       `json:"discount"`
	Items     []SaleItemResponse    `json:"items"`
	Payments  []SalePaymentResponse `json:"payments"`
	CreatedAt string                `json:"createdAt"`
}

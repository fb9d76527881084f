package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type VariantRequest struct {
	// ID is set when updating an existing variant; empty creates a new one.
	ID        string          `json:"id"        validate:"omitempty,uuid"`
	Size      string          `json:"size"      validate:"required,max=20"`
	Color     string          `json:"color"     validate:"required,max=40"`
	CostPrice decimal.Decimal `json:"costPrice" validate:"min=0"`
	SellPrice decimal.Decimal `json:"sellPrice" validate:"min=0"`
	// Stock is only honored for new variants; existing stock moves through
	// the stock-adjustment endpoint.
	Stock int    `json:"stock" validate:"min=0"`
	SKU   string `json:"sku"   validate:"omitempty,max=64"`
}

type CreateProductRequest struct {
	Name        string           `json:"name"        validate:"required,min=2,max=120"`
	Description *string          `json:"description"`
	Brand       string           `json:"brand"       validate:"max=80"`
	Category    string           `json:"category"    validate:"max=80"`
	Variants    []VariantRequest `json:"variants"    validate:"dive"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,min=2,max=120"`
	Description *string          `json:"description"`
	Brand       *string          `json:"brand"       validate:"omitempty,max=80"`
	Category    *string          `json:"category"    validate:"omitempty,max=80"`
	Variants    []VariantRequest `json:"variants"    validate:"dive"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

type ProductFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Brand    string `form:"brand"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VariantResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	Size      string           `json:"size"`
	Color     string           `json:"color"`
	CostPrice decimal.Decimal  `json:"costPrice"`
	SellPrice decimal.Decimal  `json:"sellPrice"`
	Stock     int              `json:"stock"`
	SKU       string           `json:"sku"`
	Deleted   bool             `json:"deleted"`
	Product   *ProductResponse `json:"product,omitempty"`
}

type ProductResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Brand       string            `json:"brand"`
	Category    string            `json:"category"`
	Deleted     bool              `json:"deleted"`
	Variants    []VariantResponse `json:"variants,omitempty"`
}

type ProductCreatedResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"productId"`
}

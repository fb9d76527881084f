package dto

// AdjustStockRequest is the body of PATCH /api/products/variants/:id/stock.
// Quantity is a signed delta added to the current stock.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required,ne=0"`
	Reason   string `json:"reason"   validate:"max=200"`
}

type AdjustStockResponse struct {
	Message       string `json:"message"`
	SKU           string `json:"sku"`
	PreviousStock int    `json:"previousStock"`
	CurrentStock  int    `json:"currentStock"`
}

type LowStockResponse struct {
	Threshold int               `json:"threshold"`
	Count     int               `json:"count"`
	Items     []VariantResponse `json:"items"`
}

// MovementFilter is bound from the query string of GET /api/inventory/movements.
type MovementFilter struct {
	VariantID string `form:"variantId" validate:"omitempty,uuid"`
	Kind      string `form:"kind"      validate:"omitempty,oneof=sale adjustment"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=100"`
}

type StockMovementResponse struct {
	ID            string  `json:"id"`
	VariantID     string  `json:"variantId"`
	SKU           string  `json:"sku,omitempty"`
	Kind          string  `json:"kind"`
	Delta         int     `json:"delta"`
	PreviousStock int     `json:"previousStock"`
	NewStock      int     `json:"newStock"`
	Reason        string  `json:"reason"`
	ReferenceID   *string `json:"referenceId"`
	CreatedAt     string  `json:"createdAt"`
}

type MovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

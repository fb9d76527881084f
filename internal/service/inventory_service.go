package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
)

// InventoryService covers stock reads and the manual adjustment path.
type InventoryService interface {
	LowStock(ctx context.Context, threshold int) (*dto.LowStockResponse, error)
	Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	AdjustStock(ctx context.Context, variantID uuid.UUID, req dto.AdjustStockRequest, userID *uuid.UUID) (*dto.AdjustStockResponse, error)
}

type inventoryService struct {
	variants         repository.VariantRepository
	movements        repository.StockMovementRepository
	ledger           StockLedger
	defaultThreshold int
}

func NewInventoryService(
	variants repository.VariantRepository,
	movements repository.StockMovementRepository,
	ledger StockLedger,
	defaultThreshold int,
) InventoryService {
	return &inventoryService{
		variants:         variants,
		movements:        movements,
		ledger:           ledger,
		defaultThreshold: defaultThreshold,
	}
}

// LowStock lists live variants at or below threshold. A negative threshold
// selects the configured default.
func (s *inventoryService) LowStock(ctx context.Context, threshold int) (*dto.LowStockResponse, error) {
	if threshold < 0 {
		threshold = s.defaultThreshold
	}
	variants, err := s.variants.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, &StorageError{Op: "list low stock", Err: err}
	}
	items := make([]dto.VariantResponse, 0, len(variants))
	for i := range variants {
		items = append(items, *variantToResponse(&variants[i], true))
	}
	return &dto.LowStockResponse{Threshold: threshold, Count: len(items), Items: items}, nil
}

func (s *inventoryService) Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.StockMovementFilter{Kind: filter.Kind, Page: filter.Page, Limit: filter.Limit}
	if filter.VariantID != "" {
		id, err := uuid.Parse(filter.VariantID)
		if err != nil {
			return nil, fmt.Errorf("%w: variantId is not a valid id", ErrValidationFailed)
		}
		f.VariantID = &id
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}

	rows, total, err := s.movements.List(ctx, f)
	if err != nil {
		return nil, &StorageError{Op: "list stock movements", Err: err}
	}
	resp := &dto.MovementListResponse{
		Data:  make([]dto.StockMovementResponse, 0, len(rows)),
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}
	for _, m := range rows {
		r := dto.StockMovementResponse{
			ID:            m.ID.String(),
			VariantID:     m.VariantID.String(),
			Kind:          m.Kind,
			Delta:         m.Delta,
			PreviousStock: m.PreviousStock,
			NewStock:      m.NewStock,
			Reason:        m.Reason,
			CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.Variant != nil {
			r.SKU = m.Variant.SKU
		}
		if m.ReferenceID != nil {
			ref := m.ReferenceID.String()
			r.ReferenceID = &ref
		}
		resp.Data = append(resp.Data, r)
	}
	return resp, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, variantID uuid.UUID, req dto.AdjustStockRequest, userID *uuid.UUID) (*dto.AdjustStockResponse, error) {
	change, err := s.ledger.Adjust(ctx, variantID, req.Quantity, req.Reason, userID)
	if err != nil {
		return nil, err
	}
	return &dto.AdjustStockResponse{
		Message:       "Stock updated successfully",
		SKU:           change.SKU,
		PreviousStock: change.Previous,
		CurrentStock:  change.Current,
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sachero10/backend-tienda-ropa/internal/model"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockChange is the before/after view of a manual adjustment.
type StockChange struct {
	VariantID uuid.UUID
	SKU       string
	Previous  int
	Current   int
}

// StockLedger owns every stock mutation. Methods taking a tx must be called
// with the transaction that will commit the decision they support.
type StockLedger interface {
	// Lock row-locks the given variants in ascending id order. Duplicates are
	// collapsed.
	Lock(tx *gorm.DB, variantIDs []uuid.UUID) error
	// CheckAvailable fails unless stock minus reserved covers quantity.
	CheckAvailable(tx *gorm.DB, variantID uuid.UUID, quantity, reserved int) error
	Decrement(tx *gorm.DB, variantID uuid.UUID, quantity int, saleID uuid.UUID, userID *uuid.UUID) error
	// Adjust applies an operator delta in its own transaction.
	Adjust(ctx context.Context, variantID uuid.UUID, delta int, reason string, userID *uuid.UUID) (*StockChange, error)
}

type stockLedger struct {
	variants  repository.VariantRepository
	movements repository.StockMovementRepository
}

func NewStockLedger(variants repository.VariantRepository, movements repository.StockMovementRepository) StockLedger {
	return &stockLedger{variants: variants, movements: movements}
}

func (l *stockLedger) Lock(tx *gorm.DB, variantIDs []uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{}, len(variantIDs))
	ids := make([]uuid.UUID, 0, len(variantIDs))
	for _, id := range variantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	if _, err := l.variants.LockTx(tx, ids); err != nil {
		return &StorageError{Op: "lock variants", Err: err}
	}
	return nil
}

func (l *stockLedger) CheckAvailable(tx *gorm.DB, variantID uuid.UUID, quantity, reserved int) error {
	v, err := l.find(tx, variantID, quantity)
	if err != nil {
		return err
	}
	available := v.Stock - reserved
	if available < quantity {
		return &InsufficientStockError{VariantID: v.ID, SKU: v.SKU, Requested: quantity, Available: available}
	}
	return nil
}

func (l *stockLedger) Decrement(tx *gorm.DB, variantID uuid.UUID, quantity int, saleID uuid.UUID, userID *uuid.UUID) error {
	if quantity <= 0 {
		return &MalformedBasketError{Field: "items.quantity", Reason: "must be greater than zero"}
	}
	before, err := l.find(tx, variantID, quantity)
	if err != nil {
		return err
	}
	ok, err := l.variants.ApplyStockDeltaTx(tx, variantID, -quantity)
	if err != nil {
		return &StorageError{Op: "decrement stock", Err: err}
	}
	if !ok {
		current, err := l.find(tx, variantID, quantity)
		if err != nil {
			return err
		}
		return &InsufficientStockError{VariantID: variantID, SKU: current.SKU, Requested: quantity, Available: current.Stock}
	}

	ref := saleID
	mov := &model.StockMovement{
		VariantID:     variantID,
		Kind:          model.MovementSale,
		Delta:         -quantity,
		PreviousStock: before.Stock,
		NewStock:      before.Stock - quantity,
		Reason:        fmt.Sprintf("sale %s", saleID),
		ReferenceID:   &ref,
		UserID:        userID,
	}
	if err := l.movements.CreateTx(tx, mov); err != nil {
		return &StorageError{Op: "record stock movement", Err: err}
	}
	return nil
}

func (l *stockLedger) Adjust(ctx context.Context, variantID uuid.UUID, delta int, reason string, userID *uuid.UUID) (*StockChange, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: quantity must not be zero", ErrValidationFailed)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual adjustment"
	}

	var change StockChange
	err := runTx(ctx, l.variants.DB(), func(tx *gorm.DB) error {
		v, err := l.find(tx, variantID, -delta)
		if err != nil {
			return err
		}
		ok, err := l.variants.ApplyStockDeltaTx(tx, variantID, delta)
		if err != nil {
			return &StorageError{Op: "adjust stock", Err: err}
		}
		if !ok {
			return &InsufficientStockError{VariantID: variantID, SKU: v.SKU, Requested: -delta, Available: v.Stock}
		}
		mov := &model.StockMovement{
			VariantID:     variantID,
			Kind:          model.MovementAdjustment,
			Delta:         delta,
			PreviousStock: v.Stock,
			NewStock:      v.Stock + delta,
			Reason:        reason,
			UserID:        userID,
		}
		if err := l.movements.CreateTx(tx, mov); err != nil {
			return &StorageError{Op: "record stock movement", Err: err}
		}
		change = StockChange{VariantID: variantID, SKU: v.SKU, Previous: v.Stock, Current: v.Stock + delta}
		return nil
	})
	if err != nil {
		return nil, asStorageFailure("adjust stock", err)
	}
	return &change, nil
}

// find reads a live variant under lock. A missing or soft-deleted variant is
// reported as insufficient stock with Missing set.
func (l *stockLedger) find(tx *gorm.DB, variantID uuid.UUID, requested int) (*model.Variant, error) {
	v, err := l.variants.FindForUpdateTx(tx, variantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &InsufficientStockError{VariantID: variantID, Requested: requested, Missing: true}
	}
	if err != nil {
		return nil, &StorageError{Op: "read variant", Err: err}
	}
	return v, nil
}

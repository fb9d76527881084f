package repository

import (
	"context"

	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VariantRepository is the stock-bearing half of the catalog store.
// Every *Tx method must run on the transaction that applies the decision
// it supports; the row locks are released on commit or rollback.
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Variant, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Variant, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.Variant, error)

	// LockTx takes row locks on every id in ascending order and returns the
	// live (non soft-deleted) rows.
	LockTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Variant, error)
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Variant, error)
	// ApplyStockDeltaTx adds delta to stock unless the result would be negative.
	// Returns false when the guard rejected the update.
	ApplyStockDeltaTx(tx *gorm.DB, id uuid.UUID, delta int) (bool, error)

	DB() *gorm.DB
}

type variantRepo struct{ db *gorm.DB }

func NewVariantRepository(db *gorm.DB) VariantRepository { return &variantRepo{db: db} }

func (r *variantRepo) DB() *gorm.DB { return r.db }

func (r *variantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	var v model.Variant
	err := r.db.WithContext(ctx).Preload("Product").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *variantRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Variant, error) {
	var variants []model.Variant
	if len(ids) == 0 {
		return variants, nil
	}
	err := r.db.WithContext(ctx).Preload("Product").Where("id IN ?", ids).Find(&variants).Error
	return variants, err
}

func (r *variantRepo) ListLowStock(ctx context.Context, threshold int) ([]model.Variant, error) {
	var variants []model.Variant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("stock <= ?", threshold).
		Order("stock ASC").Order("sku ASC").
		Find(&variants).Error
	return variants, err
}

func (r *variantRepo) LockTx(tx *gorm.DB, ids []uuid.UUID) ([]model.Variant, error) {
	var variants []model.Variant
	if len(ids) == 0 {
		return variants, nil
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&variants).Error
	return variants, err
}

func (r *variantRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Variant, error) {
	var v model.Variant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) ApplyStockDeltaTx(tx *gorm.DB, id uuid.UUID, delta int) (bool, error) {
	res := tx.Model(&model.Variant{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

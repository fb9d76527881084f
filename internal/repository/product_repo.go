package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID, withDeleted bool) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error

	// Used inside transactions; callers must pass the tx instance
	UpdateTx(tx *gorm.DB, p *model.Product) error
	CreateVariantTx(tx *gorm.DB, v *model.Variant) error
	// UpdateVariantTx writes descriptive fields and prices; stock is never
	// written here.
	UpdateVariantTx(tx *gorm.DB, v *model.Variant) error

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID, withDeleted bool) (*model.Product, error) {
	var p model.Product
	q := r.db.WithContext(ctx)
	if withDeleted {
		q = q.Unscoped().Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("sku ASC") })
	} else {
		q = q.Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("sku ASC") })
	}
	err := q.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Model(&model.Product{})

	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		skuMatch := r.db.Model(&model.Variant{}).Select("product_id").Where("LOWER(sku) LIKE ?", like)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR id IN (?)", like, like, skuMatch)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Brand != "" {
		q = q.Where("brand = ?", filter.Brand)
	}

	err := q.Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("sku ASC") }).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

// SoftDelete stamps deleted_at on the product and its variants.
func (r *productRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&model.Variant{}).Error
	})
}

// Restore clears deleted_at on the product and every variant deleted with it.
func (r *productRepo) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(&model.Product{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"deleted_at": nil, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Unscoped().Model(&model.Variant{}).
			Where("product_id = ? AND deleted_at IS NOT NULL", id).
			Updates(map[string]interface{}{"deleted_at": nil, "updated_at": time.Now().UTC()}).Error
	})
}

func (r *productRepo) UpdateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Unscoped().Model(p).
		Omit(clause.Associations).
		Select("name", "description", "brand", "category", "updated_at").
		Updates(p).Error
}

func (r *productRepo) CreateVariantTx(tx *gorm.DB, v *model.Variant) error {
	return tx.Create(v).Error
}

func (r *productRepo) UpdateVariantTx(tx *gorm.DB, v *model.Variant) error {
	return tx.Unscoped().Model(v).
		Select("size", "color", "cost_price", "sell_price", "sku", "updated_at").
		Updates(v).Error
}

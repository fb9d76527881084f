package repository

import (
	"context"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MethodTotal is one row of the per-payment-method breakdown.
type MethodTotal struct {
	Method string
	Total  decimal.Decimal
	Count  int64
}

// SaleTotals is the all-time revenue aggregate.
type SaleTotals struct {
	Revenue decimal.Decimal
	Count   int64
}

type SaleRepository interface {
	// Header, payments and items are written separately so the engine controls
	// ordering inside its transaction.
	CreateTx(tx *gorm.DB, s *model.Sale) error
	CreatePaymentTx(tx *gorm.DB, p *model.SalePayment) error
	CreateItemTx(tx *gorm.DB, i *model.SaleItem) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, page, limit int) ([]model.Sale, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	SumByMethodBetween(ctx context.Context, from, to time.Time) ([]MethodTotal, error)
	Totals(ctx context.Context) (*SaleTotals, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Omit(clause.Associations).Create(s).Error
}

func (r *saleRepo) CreatePaymentTx(tx *gorm.DB, p *model.SalePayment) error {
	return tx.Create(p).Error
}

func (r *saleRepo) CreateItemTx(tx *gorm.DB, i *model.SaleItem) error {
	return tx.Omit(clause.Associations).Create(i).Error
}

// withDetails preloads items → variant → product, including soft-deleted
// catalog rows, plus payments.
func withDetails(q *gorm.DB) *gorm.DB {
	unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line ASC") }).
		Preload("Items.Variant", unscoped).
		Preload("Items.Variant.Product", unscoped).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("line ASC") })
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := withDetails(r.db.WithContext(ctx)).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) List(ctx context.Context, page, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	offset := (page - 1) * limit
	err := withDetails(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := withDetails(r.db.WithContext(ctx)).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) SumByMethodBetween(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	var rows []MethodTotal
	err := r.db.WithContext(ctx).
		Table("sale_payments").
		Select("sale_payments.method AS method, SUM(sale_payments.amount) AS total, COUNT(*) AS count").
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.created_at BETWEEN ? AND ?", from, to).
		Group("sale_payments.method").
		Order("sale_payments.method ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *saleRepo) Totals(ctx context.Context) (*SaleTotals, error) {
	var t SaleTotals
	err := r.db.WithContext(ctx).
		Model(&model.Sale{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS count").
		Scan(&t).Error
	return &t, err
}

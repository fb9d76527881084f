package service

import (
	"context"
	"sync"
	"testing"

	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase(infra.DatabaseOptions{
		Driver: infra.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// seedVariant creates a product with one variant and returns the variant.
func seedVariant(t *testing.T, db *gorm.DB, sku string, stock int, sellPrice string) *model.Variant {
	t.Helper()
	p := &model.Product{
		Name:     "Remera " + sku,
		Brand:    "Basica",
		Category: "remeras",
		Variants: []model.Variant{{
			Size:      "M",
			Color:     "Negro",
			CostPrice: dec("40.00"),
			SellPrice: dec(sellPrice),
			Stock:     stock,
			SKU:       sku,
		}},
	}
	require.NoError(t, db.Create(p).Error)
	return &p.Variants[0]
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var v model.Variant
	require.NoError(t, db.Unscoped().First(&v, "id = ?", id).Error)
	return v.Stock
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

// recordingDispatcher captures post-commit notifications.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchedSale
	err   error
}

type dispatchedSale struct {
	SaleID     uuid.UUID
	VariantIDs []uuid.UUID
}

func (d *recordingDispatcher) EnqueueSaleCommitted(_ context.Context, saleID uuid.UUID, variantIDs []uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchedSale{SaleID: saleID, VariantIDs: variantIDs})
	return d.err
}

var _ SaleJobDispatcher = (*recordingDispatcher)(nil)

package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGenerateSKU(t *testing.T) {
	sku := GenerateSKU("remera vintage", " xl ", "negro")
	assert.Regexp(t, regexp.MustCompile(`^REM-XL-NEG-\d{4}$`), sku)

	short := GenerateSKU("Ñu", "S", "az")
	assert.Regexp(t, regexp.MustCompile(`^ÑU-S-AZ-\d{4}$`), short)
}

func TestProductService_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	svc := NewProductService(repository.NewProductRepository(db))
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateProductRequest{
		Name:     "Jean Recto",
		Brand:    "Denim Co",
		Category: "pantalones",
		Variants: []dto.VariantRequest{
			{Size: "42", Color: "Azul", SellPrice: dec("250.00"), Stock: 4},
			{Size: "44", Color: "Azul", SellPrice: dec("250.00"), Stock: 2, SKU: "JEAN-44-AZ"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Product created successfully", created.Message)

	got, err := svc.Get(ctx, uuid.MustParse(created.ProductID), false)
	require.NoError(t, err)
	assert.Equal(t, "Jean Recto", got.Name)
	require.Len(t, got.Variants, 2)

	skus := []string{got.Variants[0].SKU, got.Variants[1].SKU}
	assert.Contains(t, skus, "JEAN-44-AZ")
	for _, v := range got.Variants {
		if v.SKU != "JEAN-44-AZ" {
			assert.Regexp(t, `^JEA-42-AZU-\d{4}$`, v.SKU)
			assert.Equal(t, 4, v.Stock)
		}
	}
}

func TestProductService_DuplicateSKU(t *testing.T) {
	db := newTestDB(t)
	seedVariant(t, db, "DUP-1", 1, "10.00")
	svc := NewProductService(repository.NewProductRepository(db))

	_, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name:     "Otro",
		Variants: []dto.VariantRequest{{Size: "M", Color: "Rojo", SKU: "DUP-1"}},
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestProductService_UpdateNeverTouchesExistingStock(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-3001", 7, "100.00")
	svc := NewProductService(repository.NewProductRepository(db))
	ctx := context.Background()

	got, err := svc.Update(ctx, v.ProductID, dto.UpdateProductRequest{
		Name: strPtr("Remera Lisa"),
		Variants: []dto.VariantRequest{
			{ID: v.ID.String(), Size: "M", Color: "Negro", SellPrice: dec("120.00"), Stock: 999},
			{Size: "L", Color: "Negro", SellPrice: dec("120.00"), Stock: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Remera Lisa", got.Name)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, 7, stockOf(t, db, v.ID))

	for _, gv := range got.Variants {
		assert.Equal(t, "120.00", gv.SellPrice.StringFixed(2))
		if gv.ID != v.ID.String() {
			assert.Equal(t, 3, gv.Stock)
		}
	}
}

func TestProductService_UpdateUnknownVariant(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-3002", 1, "100.00")
	svc := NewProductService(repository.NewProductRepository(db))

	_, err := svc.Update(context.Background(), v.ProductID, dto.UpdateProductRequest{
		Variants: []dto.VariantRequest{{ID: uuid.NewString(), Size: "M", Color: "Negro"}},
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProductService_DeleteAndRestore(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-3003", 1, "100.00")
	svc := NewProductService(repository.NewProductRepository(db))
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, v.ProductID))

	_, err := svc.Get(ctx, v.ProductID, false)
	assert.True(t, errors.Is(err, ErrNotFound))

	deleted, err := svc.Get(ctx, v.ProductID, true)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	require.Len(t, deleted.Variants, 1)
	assert.True(t, deleted.Variants[0].Deleted)

	list, err := svc.List(ctx, dto.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Restore(ctx, v.ProductID))
	restored, err := svc.Get(ctx, v.ProductID, false)
	require.NoError(t, err)
	assert.False(t, restored.Deleted)
	require.Len(t, restored.Variants, 1)

	assert.True(t, errors.Is(svc.Delete(ctx, uuid.New()), ErrNotFound))
	assert.True(t, errors.Is(svc.Restore(ctx, uuid.New()), ErrNotFound))
}

func TestProductService_ListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewProductService(repository.NewProductRepository(db))
	ctx := context.Background()

	for _, req := range []dto.CreateProductRequest{
		{Name: "Campera Cuero", Brand: "Norte", Category: "abrigos", Variants: []dto.VariantRequest{{Size: "M", Color: "Marron", SKU: "CAM-M-MAR-1"}}},
		{Name: "Buzo Frisa", Brand: "Sur", Category: "abrigos", Variants: []dto.VariantRequest{{Size: "L", Color: "Gris", SKU: "BUZ-L-GRI-1"}}},
		{Name: "Short Playa", Brand: "Sur", Category: "verano"},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	byCategory, err := svc.List(ctx, dto.ProductFilter{Category: "abrigos"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	byBrand, err := svc.List(ctx, dto.ProductFilter{Brand: "Sur"})
	require.NoError(t, err)
	assert.Len(t, byBrand, 2)

	bySKU, err := svc.List(ctx, dto.ProductFilter{Search: "buz-l"})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, "Buzo Frisa", bySKU[0].Name)

	byName, err := svc.List(ctx, dto.ProductFilter{Search: "CUERO"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/model"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestSaleService(db *gorm.DB, d SaleJobDispatcher) SaleService {
	return NewSaleService(repository.NewSaleRepository(db), newTestLedger(db), d, SaleOptions{MaxRetries: 2})
}

func item(v *model.Variant, qty int, price string) dto.SaleItemRequest {
	return dto.SaleItemRequest{VariantID: v.ID.String(), Quantity: qty, PriceAtSale: dec(price)}
}

func pay(method, amount string) dto.SalePaymentRequest {
	return dto.SalePaymentRequest{Method: method, Amount: dec(amount)}
}

// assertNothingPersisted checks that a failed attempt left no sale rows.
func assertNothingPersisted(t *testing.T, db *gorm.DB) {
	t.Helper()
	assert.Zero(t, countRows(t, db, &model.Sale{}))
	assert.Zero(t, countRows(t, db, &model.SaleItem{}))
	assert.Zero(t, countRows(t, db, &model.SalePayment{}))
	assert.Zero(t, countRows(t, db, &model.StockMovement{}))
}

func TestCreateSale_SingleItemExactPayment(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2001", 10, "100.00")
	disp := &recordingDispatcher{}
	svc := newTestSaleService(db, disp)
	user := uuid.New()

	resp, err := svc.CreateSale(context.Background(), &user, dto.CreateSaleRequest{
		Total:    decPtr("400.00"),
		Items:    []dto.SaleItemRequest{item(v, 4, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "400.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sale created successfully", resp.Message)
	assert.Equal(t, "400.00", resp.Total.StringFixed(2))
	assert.Equal(t, 6, stockOf(t, db, v.ID))

	var sale model.Sale
	require.NoError(t, db.Preload("Items").Preload("Payments").First(&sale, "id = ?", resp.SaleID).Error)
	assert.Equal(t, "400.00", sale.Total.StringFixed(2))
	require.NotNil(t, sale.UserID)
	assert.Equal(t, user, *sale.UserID)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 4, sale.Items[0].Quantity)
	require.Len(t, sale.Payments, 1)
	assert.Equal(t, "cash", sale.Payments[0].Method)

	require.Len(t, disp.calls, 1)
	assert.Equal(t, resp.SaleID, disp.calls[0].SaleID.String())
	assert.Equal(t, []uuid.UUID{v.ID}, disp.calls[0].VariantIDs)
}

func TestCreateSale_DiscountAndSplitTender(t *testing.T) {
	db := newTestDB(t)
	a := seedVariant(t, db, "REM-M-NEG-2002", 5, "100.00")
	b := seedVariant(t, db, "JEA-42-AZU-2003", 5, "250.00")
	svc := newTestSaleService(db, nil)

	resp, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Discount: decPtr("50.00"),
		Items:    []dto.SaleItemRequest{item(a, 2, "100.00"), item(b, 1, "250.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "100.00"), pay("card", "300.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00", resp.Total.StringFixed(2))
	assert.Equal(t, 3, stockOf(t, db, a.ID))
	assert.Equal(t, 4, stockOf(t, db, b.ID))

	got, err := svc.GetSale(context.Background(), uuid.MustParse(resp.SaleID))
	require.NoError(t, err)
	assert.Equal(t, "50.00", got.Discount.StringFixed(2))
	require.Len(t, got.Items, 2)
	assert.Equal(t, a.ID.String(), got.Items[0].VariantID)
	assert.Equal(t, "200.00", got.Items[0].Subtotal.StringFixed(2))
	require.Len(t, got.Payments, 2)
	assert.Equal(t, "card", got.Payments[1].Method)
	assert.Nil(t, got.UserID)
}

func TestCreateSale_StoredRowsHoldAtToleranceEdge(t *testing.T) {
	type line struct {
		qty   int
		price string
	}
	tests := []struct {
		name      string
		lines     []line
		discount  string
		total     string
		payments  []string
		wantTotal string
	}{
		{"payments one cent over derived", []line{{3, "33.33"}}, "", "", []string{"100.00"}, "99.99"},
		{"declared total one cent over", []line{{3, "33.33"}}, "", "100.00", []string{"100.00"}, "99.99"},
		{"declared total one cent under", []line{{1, "100.00"}}, "", "99.99", []string{"99.99"}, "100.00"},
		{"discount with split tender one cent short", []line{{2, "50.00"}}, "0.01", "", []string{"50.00", "49.98"}, "99.99"},
		{"two lines with cents", []line{{2, "19.99"}, {1, "0.01"}}, "0.50", "39.49", []string{"20.00", "19.49"}, "39.49"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			svc := newTestSaleService(db, nil)

			req := dto.CreateSaleRequest{}
			if tt.discount != "" {
				req.Discount = decPtr(tt.discount)
			}
			if tt.total != "" {
				req.Total = decPtr(tt.total)
			}
			for i, l := range tt.lines {
				v := seedVariant(t, db, fmt.Sprintf("EDG-M-NEG-%d", i), 10, l.price)
				req.Items = append(req.Items, item(v, l.qty, l.price))
			}
			for _, a := range tt.payments {
				req.Payments = append(req.Payments, pay("cash", a))
			}

			resp, err := svc.CreateSale(context.Background(), nil, req)
			require.NoError(t, err)

			var sale model.Sale
			require.NoError(t, db.Preload("Items").Preload("Payments").First(&sale, "id = ?", resp.SaleID).Error)
			assert.Equal(t, tt.wantTotal, sale.Total.StringFixed(2))

			paid := decimal.Zero
			for _, p := range sale.Payments {
				assert.True(t, p.Amount.IsPositive(), "stored payment %s", p.Amount)
				paid = paid.Add(p.Amount)
			}
			assert.True(t, paid.Sub(sale.Total).Abs().LessThanOrEqual(Tolerance),
				"payments %s vs stored total %s", paid, sale.Total)

			lines := decimal.Zero
			for i, it := range sale.Items {
				assert.True(t, it.PriceAtSale.Equal(dec(tt.lines[i].price)), "stored price %s", it.PriceAtSale)
				lines = lines.Add(it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
			assert.True(t, lines.Sub(sale.Discount).Sub(sale.Total).Abs().LessThanOrEqual(Tolerance),
				"items %s minus discount %s vs stored total %s", lines, sale.Discount, sale.Total)
		})
	}
}

func TestCreateSale_RejectedBeyondStoredTotal(t *testing.T) {
	tests := []struct {
		name     string
		total    *decimal.Decimal
		price    string
		payments []string
	}{
		{"declared total between items and payments", decPtr("100.01"), "100.00", []string{"100.02"}},
		{"sub-cent payment", nil, "100.00", []string{"100.00", "0.004"}},
		{"sub-cent price", nil, "33.335", []string{"33.34"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			v := seedVariant(t, db, "EDG-M-NEG-9", 10, "100.00")
			svc := newTestSaleService(db, nil)

			req := dto.CreateSaleRequest{Total: tt.total, Items: []dto.SaleItemRequest{item(v, 1, tt.price)}}
			for _, a := range tt.payments {
				req.Payments = append(req.Payments, pay("cash", a))
			}

			_, err := svc.CreateSale(context.Background(), nil, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidationFailed))
			assertNothingPersisted(t, db)
			assert.Equal(t, 10, stockOf(t, db, v.ID))
		})
	}
}

func TestCreateSale_DeclaredTotalMismatch(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2004", 10, "100.00")

	_, err := newTestSaleService(db, nil).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Total:    decPtr("390.00"),
		Items:    []dto.SaleItemRequest{item(v, 4, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "400.00")},
	})
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Equal(t, 10, stockOf(t, db, v.ID))
	assertNothingPersisted(t, db)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2005", 2, "100.00")

	_, err := newTestSaleService(db, nil).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 5, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "500.00")},
	})
	var stock *InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assert.Equal(t, 5, stock.Requested)
	assert.Equal(t, 2, stock.Available)
	assert.Equal(t, 2, stockOf(t, db, v.ID))
	assertNothingPersisted(t, db)
}

func TestCreateSale_LateItemFailureRollsBackEarlierLines(t *testing.T) {
	db := newTestDB(t)
	ok := seedVariant(t, db, "REM-M-NEG-2006", 10, "100.00")
	empty := seedVariant(t, db, "REM-L-BLA-2007", 0, "100.00")

	_, err := newTestSaleService(db, nil).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(ok, 3, "100.00"), item(empty, 1, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "400.00")},
	})
	var stock *InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assert.Equal(t, empty.ID, stock.VariantID)
	assert.Equal(t, 10, stockOf(t, db, ok.ID))
	assertNothingPersisted(t, db)
}

func TestCreateSale_RepeatedVariantDrawsFromSameStock(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2008", 3, "100.00")
	svc := newTestSaleService(db, nil)

	_, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 2, "100.00"), item(v, 2, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "400.00")},
	})
	var stock *InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assert.Equal(t, 1, stock.Available)
	assert.Equal(t, 3, stockOf(t, db, v.ID))

	_, err = svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 1, "100.00"), item(v, 2, "90.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "280.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, db, v.ID))
	assert.EqualValues(t, 2, countRows(t, db, &model.StockMovement{}))
}

func TestCreateSale_UnknownVariant(t *testing.T) {
	db := newTestDB(t)
	ghost := &model.Variant{ID: uuid.New()}

	_, err := newTestSaleService(db, nil).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(ghost, 1, "10.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "10.00")},
	})
	assert.True(t, errors.Is(err, ErrNotFound))
	assertNothingPersisted(t, db)
}

func TestCreateSale_UnparseableVariantID(t *testing.T) {
	db := newTestDB(t)

	_, err := newTestSaleService(db, nil).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{{VariantID: "not-a-uuid", Quantity: 1, PriceAtSale: dec("10")}},
		Payments: []dto.SalePaymentRequest{pay("cash", "10.00")},
	})
	var shape *MalformedBasketError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, "items.variantId", shape.Field)
}

func TestCreateSale_LastUnitUnderConcurrency(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2009", 1, "100.00")
	svc := newTestSaleService(db, nil)

	const buyers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejects   int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
				Items:    []dto.SaleItemRequest{item(v, 1, "100.00")},
				Payments: []dto.SalePaymentRequest{pay("cash", "100.00")},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientStock):
				rejects++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, rejects)
	assert.Equal(t, 0, stockOf(t, db, v.ID))
	assert.EqualValues(t, 1, countRows(t, db, &model.Sale{}))
}

func TestCreateSale_PriceAtSaleIsFrozen(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2010", 5, "100.00")
	svc := newTestSaleService(db, nil)

	resp, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 1, "85.50")},
		Payments: []dto.SalePaymentRequest{pay("cash", "85.50")},
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.Variant{}).Where("id = ?", v.ID).Update("sell_price", dec("150.00")).Error)

	got, err := svc.GetSale(context.Background(), uuid.MustParse(resp.SaleID))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "85.50", got.Items[0].PriceAtSale.StringFixed(2))
	require.NotNil(t, got.Items[0].Variant)
	assert.Equal(t, "150.00", got.Items[0].Variant.SellPrice.StringFixed(2))
	require.NotNil(t, got.Items[0].Variant.Product)
}

func TestCreateSale_DispatchFailureDoesNotUndoSale(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2011", 5, "100.00")
	disp := &recordingDispatcher{err: errors.New("redis down")}

	_, err := newTestSaleService(db, disp).CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 1, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "100.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, stockOf(t, db, v.ID))
	assert.Len(t, disp.calls, 1)
}

func TestCreateSale_CancelledCallerStillResolves(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2012", 5, "100.00")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSaleService(db, nil).CreateSale(ctx, nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 2, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "200.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, db, v.ID))
}

// failingLedger fails the lock step with an infrastructure error.
type failingLedger struct{ StockLedger }

func (failingLedger) Lock(*gorm.DB, []uuid.UUID) error { return errors.New("connection reset") }

func TestCreateSale_StorageFailure(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2013", 5, "100.00")
	svc := NewSaleService(repository.NewSaleRepository(db), failingLedger{newTestLedger(db)}, nil, SaleOptions{})

	_, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 1, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "100.00")},
	})
	assert.True(t, errors.Is(err, ErrStorageFailure))
	var storage *StorageError
	require.True(t, errors.As(err, &storage))
	assert.Equal(t, 5, stockOf(t, db, v.ID))
	assertNothingPersisted(t, db)
}

func TestListSales_NewestFirstWithPaging(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REM-M-NEG-2014", 10, "10.00")
	svc := newTestSaleService(db, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		resp, err := svc.CreateSale(context.Background(), nil, dto.CreateSaleRequest{
			Items:    []dto.SaleItemRequest{item(v, 1, "10.00")},
			Payments: []dto.SalePaymentRequest{pay("cash", "10.00")},
		})
		require.NoError(t, err)
		ids = append(ids, resp.SaleID)
	}

	all, err := svc.ListSales(context.Background(), dto.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	page, err := svc.ListSales(context.Background(), dto.SaleFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestGetSale_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := newTestSaleService(db, nil).GetSale(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

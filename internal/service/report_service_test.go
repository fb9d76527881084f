package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRange(t *testing.T) {
	from, to, err := ReportRange("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999_000_000, time.UTC), to)

	from, to, err = ReportRange("2026-03-05", "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Millisecond, to.Sub(from))

	for _, tc := range [][2]string{{"2026-13-01", "2026-12-01"}, {"2026-03-01", "yesterday"}, {"2026-03-02", "2026-03-01"}} {
		_, _, err := ReportRange(tc[0], tc[1])
		assert.True(t, errors.Is(err, ErrValidationFailed), "%v", tc)
	}
}

func TestReportService_SalesReportAndExports(t *testing.T) {
	db := newTestDB(t)
	v := seedVariant(t, db, "REP-1", 10, "100.00")
	sales := newTestSaleService(db, nil)
	ctx := context.Background()

	first, err := sales.CreateSale(ctx, nil, dto.CreateSaleRequest{
		Discount: decPtr("10.00"),
		Items:    []dto.SaleItemRequest{item(v, 2, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "90.00"), pay("card", "100.00")},
	})
	require.NoError(t, err)
	_, err = sales.CreateSale(ctx, nil, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(v, 1, "100.00")},
		Payments: []dto.SalePaymentRequest{pay("cash", "100.00")},
	})
	require.NoError(t, err)

	svc := NewReportService(repository.NewSaleRepository(db), nil, "ARS", "Tienda Test")
	today := time.Now().UTC().Format("2006-01-02")

	report, err := svc.SalesReport(ctx, dto.ReportQuery{Start: today, End: today})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SalesCount)
	assert.Equal(t, "290.00", report.TotalRevenue.StringFixed(2))
	assert.Equal(t, "10.00", report.TotalDiscount.StringFixed(2))
	require.Len(t, report.ByMethod, 2)
	assert.Equal(t, "card", report.ByMethod[0].Method)
	assert.Equal(t, "100.00", report.ByMethod[0].Total.StringFixed(2))
	assert.Equal(t, "cash", report.ByMethod[1].Method)
	assert.Equal(t, "190.00", report.ByMethod[1].Total.StringFixed(2))
	assert.EqualValues(t, 2, report.ByMethod[1].Count)

	empty, err := svc.SalesReport(ctx, dto.ReportQuery{Start: "2001-01-01", End: "2001-01-31"})
	require.NoError(t, err)
	assert.Zero(t, empty.SalesCount)
	assert.Empty(t, empty.ByMethod)

	xlsx, err := svc.ExportSalesReport(ctx, dto.ReportQuery{Start: today, End: today})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")), "xlsx is a zip container")

	pdf, err := svc.Receipt(ctx, uuid.MustParse(first.SaleID))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = svc.Receipt(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "290.00", stats.TotalRevenue.StringFixed(2))
	assert.EqualValues(t, 2, stats.TotalSalesCount)
	assert.Equal(t, "ARS", stats.Currency)
}

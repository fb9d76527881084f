package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/infra"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	reportDateLayout = "2006-01-02"
	statsCacheTTL    = 30 * time.Second
)

// ReportService is the read side over committed sales.
type ReportService interface {
	SalesReport(ctx context.Context, q dto.ReportQuery) (*dto.SalesReportResponse, error)
	ExportSalesReport(ctx context.Context, q dto.ReportQuery) ([]byte, error)
	DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	Receipt(ctx context.Context, saleID uuid.UUID) ([]byte, error)
}

type reportService struct {
	sales     repository.SaleRepository
	rdb       *redis.Client // optional
	currency  string
	storeName string
}

func NewReportService(sales repository.SaleRepository, rdb *redis.Client, currency, storeName string) ReportService {
	return &reportService{sales: sales, rdb: rdb, currency: currency, storeName: storeName}
}

// ReportRange turns two calendar dates into the inclusive UTC range
// [start 00:00:00.000, end 23:59:59.999].
func ReportRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(reportDateLayout, start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be YYYY-MM-DD", ErrValidationFailed)
	}
	day, err := time.ParseInLocation(reportDateLayout, end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end must be YYYY-MM-DD", ErrValidationFailed)
	}
	if day.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end is before start", ErrValidationFailed)
	}
	to := day.Add(24*time.Hour - time.Millisecond)
	return from, to, nil
}

func (s *reportService) SalesReport(ctx context.Context, q dto.ReportQuery) (*dto.SalesReportResponse, error) {
	from, to, err := ReportRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.ListBetween(ctx, from, to)
	if err != nil {
		return nil, &StorageError{Op: "list sales between", Err: err}
	}
	methods, err := s.sales.SumByMethodBetween(ctx, from, to)
	if err != nil {
		return nil, &StorageError{Op: "sum payments by method", Err: err}
	}

	resp := &dto.SalesReportResponse{
		Period:        dto.ReportPeriod{Start: from.Format(time.RFC3339Nano), End: to.Format(time.RFC3339Nano)},
		SalesCount:    len(sales),
		TotalRevenue:  decimal.Zero,
		TotalDiscount: decimal.Zero,
		ByMethod:      make([]dto.PaymentMethodTotal, 0, len(methods)),
		Sales:         make([]dto.SaleResponse, 0, len(sales)),
	}
	for i := range sales {
		resp.TotalRevenue = resp.TotalRevenue.Add(sales[i].Total)
		resp.TotalDiscount = resp.TotalDiscount.Add(sales[i].Discount)
		resp.Sales = append(resp.Sales, *saleToResponse(&sales[i]))
	}
	for _, m := range methods {
		resp.ByMethod = append(resp.ByMethod, dto.PaymentMethodTotal{Method: m.Method, Total: round2(m.Total), Count: m.Count})
	}
	resp.TotalRevenue = round2(resp.TotalRevenue)
	resp.TotalDiscount = round2(resp.TotalDiscount)
	return resp, nil
}

func (s *reportService) ExportSalesReport(ctx context.Context, q dto.ReportQuery) ([]byte, error) {
	report, err := s.SalesReport(ctx, q)
	if err != nil {
		return nil, err
	}
	out, err := infra.RenderSalesReport(report)
	if err != nil {
		return nil, &StorageError{Op: "render xlsx", Err: err}
	}
	return out, nil
}

// DashboardStats is cached briefly in Redis; the sale.committed worker drops
// the cached value.
func (s *reportService) DashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, infra.CacheKeyDashboardStats).Bytes(); err == nil {
			var resp dto.DashboardStatsResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	totals, err := s.sales.Totals(ctx)
	if err != nil {
		return nil, &StorageError{Op: "sale totals", Err: err}
	}
	resp := &dto.DashboardStatsResponse{
		TotalRevenue:    round2(totals.Revenue),
		TotalSalesCount: totals.Count,
		Currency:        s.currency,
	}

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			if err := s.rdb.Set(context.WithoutCancel(ctx), infra.CacheKeyDashboardStats, b, statsCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("dashboard stats cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *reportService) Receipt(ctx context.Context, saleID uuid.UUID) ([]byte, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
	}
	if err != nil {
		return nil, &StorageError{Op: "get sale", Err: err}
	}
	out, err := infra.RenderReceipt(sale, s.storeName, s.currency)
	if err != nil {
		return nil, &StorageError{Op: "render receipt", Err: err}
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/model"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale attempt states, in the order they are reached.
const (
	SaleStarted      = "started"
	SaleReconciled   = "reconciled"
	SaleStockChecked = "stock_checked"
	SalePersisted    = "persisted"
	SaleCommitted    = "committed"
	SaleRolledBack   = "rolled_back"
)

// SaleJobDispatcher receives the post-commit notification of a sale.
type SaleJobDispatcher interface {
	EnqueueSaleCommitted(ctx context.Context, saleID uuid.UUID, variantIDs []uuid.UUID) error
}

type SaleService interface {
	CreateSale(ctx context.Context, userID *uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleCreatedResponse, error)
	ListSales(ctx context.Context, filter dto.SaleFilter) ([]dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
}

// SaleOptions tunes the transaction scope of CreateSale.
type SaleOptions struct {
	Timeout    time.Duration
	MaxRetries int
}

type saleService struct {
	repo       repository.SaleRepository
	ledger     StockLedger
	dispatcher SaleJobDispatcher
	opts       SaleOptions
}

func NewSaleService(repo repository.SaleRepository, ledger StockLedger, dispatcher SaleJobDispatcher, opts SaleOptions) SaleService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &saleService{repo: repo, ledger: ledger, dispatcher: dispatcher, opts: opts}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateSale ────────────────────────────────────────────────────────────────
//   1. Reconcile payments, items and discount (no I/O)
//   2. BEGIN TX: lock variants, check stock per item in caller order
//   3. Insert sale header with the derived total, then payments
//   4. Per item: decrement stock, insert sale item
//   5. COMMIT, then (async) dispatch sale.committed

func (s *saleService) CreateSale(ctx context.Context, userID *uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleCreatedResponse, error) {
	attempt := newSaleAttempt(len(req.Items), len(req.Payments))

	basket, err := toBasket(req)
	if err != nil {
		attempt.fail(err)
		return nil, err
	}
	if err := Reconcile(basket); err != nil {
		attempt.fail(err)
		return nil, err
	}
	attempt.advance(SaleReconciled)
	total := ExpectedTotal(basket.Items, basket.Discount)

	// The scope must resolve even if the caller goes away.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()

	var sale *model.Sale
	for try := 0; ; try++ {
		attempt.state = SaleReconciled
		sale, err = s.persist(txCtx, attempt, userID, basket, total)
		if err == nil || !isRetryableConflict(err) || try >= s.opts.MaxRetries {
			break
		}
		log.Warn().Err(err).Int("attempt", try+1).Msg("sale transaction conflict, retrying")
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &StorageError{Op: "sale transaction timed out", Err: err}
		}
		err = asStorageFailure("sale transaction", err)
		attempt.fail(err)
		return nil, err
	}
	attempt.commit(sale.ID)

	if s.dispatcher != nil {
		ids := make([]uuid.UUID, 0, len(basket.Items))
		for _, it := range basket.Items {
			ids = append(ids, it.VariantID)
		}
		if err := s.dispatcher.EnqueueSaleCommitted(context.WithoutCancel(ctx), sale.ID, ids); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("failed to enqueue sale.committed")
		}
	}

	return &dto.SaleCreatedResponse{
		Message: "Sale created successfully",
		SaleID:  sale.ID.String(),
		Total:   total,
	}, nil
}

func (s *saleService) persist(ctx context.Context, attempt *saleAttempt, userID *uuid.UUID, b Basket, total decimal.Decimal) (*model.Sale, error) {
	var sale model.Sale
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, len(b.Items))
		for i, it := range b.Items {
			ids[i] = it.VariantID
		}
		if err := s.ledger.Lock(tx, ids); err != nil {
			return err
		}

		// Repeated variants draw from the same running stock.
		reserved := make(map[uuid.UUID]int, len(b.Items))
		for _, it := range b.Items {
			if err := s.ledger.CheckAvailable(tx, it.VariantID, it.Quantity, reserved[it.VariantID]); err != nil {
				return err
			}
			reserved[it.VariantID] += it.Quantity
		}
		attempt.advance(SaleStockChecked)

		sale = model.Sale{
			UserID:   userID,
			Total:    total,
			Discount: round2(b.Discount),
		}
		if err := s.repo.CreateTx(tx, &sale); err != nil {
			return err
		}

		for i, p := range b.Payments {
			payment := model.SalePayment{
				SaleID: sale.ID,
				Line:   i + 1,
				Method: p.Method,
				Amount: round2(p.Amount),
			}
			if err := s.repo.CreatePaymentTx(tx, &payment); err != nil {
				return err
			}
			sale.Payments = append(sale.Payments, payment)
		}

		for i, it := range b.Items {
			if err := s.ledger.Decrement(tx, it.VariantID, it.Quantity, sale.ID, userID); err != nil {
				return err
			}
			item := model.SaleItem{
				SaleID:      sale.ID,
				VariantID:   it.VariantID,
				Line:        i + 1,
				Quantity:    it.Quantity,
				PriceAtSale: it.PriceAtSale,
			}
			if err := s.repo.CreateItemTx(tx, &item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)
		}
		attempt.advance(SalePersisted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// toBasket converts the transport shape. Unparseable ids are a malformed
// basket, not a lookup failure.
func toBasket(req dto.CreateSaleRequest) (Basket, error) {
	b := Basket{Total: req.Total}
	if req.Discount != nil {
		b.Discount = *req.Discount
	}
	for _, it := range req.Items {
		id, err := uuid.Parse(it.VariantID)
		if err != nil {
			return Basket{}, &MalformedBasketError{Field: "items.variantId", Reason: fmt.Sprintf("%q is not a valid id", it.VariantID)}
		}
		b.Items = append(b.Items, BasketItem{VariantID: id, Quantity: it.Quantity, PriceAtSale: it.PriceAtSale})
	}
	for _, p := range req.Payments {
		b.Payments = append(b.Payments, BasketPayment{Method: p.Method, Amount: p.Amount})
	}
	return b, nil
}

// isRetryableConflict reports postgres serialization failures and deadlocks.
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// saleAttempt traces one CreateSale call through its states.
type saleAttempt struct {
	state    string
	items    int
	payments int
	started  time.Time
}

func newSaleAttempt(items, payments int) *saleAttempt {
	a := &saleAttempt{state: SaleStarted, items: items, payments: payments, started: time.Now()}
	log.Debug().Str("sale_state", a.state).Int("items", items).Int("payments", payments).Msg("sale attempt")
	return a
}

func (a *saleAttempt) advance(state string) {
	a.state = state
	log.Debug().Str("sale_state", state).Msg("sale attempt")
}

func (a *saleAttempt) commit(saleID uuid.UUID) {
	a.state = SaleCommitted
	log.Info().
		Str("sale_state", a.state).
		Str("sale_id", saleID.String()).
		Int("items", a.items).
		Int("payments", a.payments).
		Dur("elapsed", time.Since(a.started)).
		Msg("sale committed")
}

func (a *saleAttempt) fail(err error) {
	from := a.state
	a.state = SaleRolledBack
	ev := log.Warn()
	if errors.Is(err, ErrStorageFailure) {
		ev = log.Error()
	}
	ev.Err(err).
		Str("sale_state", a.state).
		Str("failed_after", from).
		Int("items", a.items).
		Int("payments", a.payments).
		Msg("sale rolled back")
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *saleService) ListSales(ctx context.Context, filter dto.SaleFilter) ([]dto.SaleResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	sales, err := s.repo.List(ctx, filter.Page, filter.Limit)
	if err != nil {
		return nil, &StorageError{Op: "list sales", Err: err}
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, *saleToResponse(&sales[i]))
	}
	return out, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, &StorageError{Op: "get sale", Err: err}
	}
	return saleToResponse(sale), nil
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:        s.ID.String(),
		Total:     s.Total,
		Discount:  s.Discount,
		Items:     make([]dto.SaleItemResponse, 0, len(s.Items)),
		Payments:  make([]dto.SalePaymentResponse, 0, len(s.Payments)),
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.UserID != nil {
		uid := s.UserID.String()
		resp.UserID = &uid
	}
	for _, it := range s.Items {
		item := dto.SaleItemResponse{
			ID:          it.ID.String(),
			VariantID:   it.VariantID.String(),
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
			Subtotal:    it.Subtotal(),
		}
		if it.Variant != nil {
			item.Variant = variantToResponse(it.Variant, true)
		}
		resp.Items = append(resp.Items, item)
	}
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, dto.SalePaymentResponse{Method: p.Method, Amount: p.Amount})
	}
	return resp
}

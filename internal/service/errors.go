package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Failure kinds. Callers classify with errors.Is; the typed errors below carry
// the values a client needs to correct the request.
var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrStorageFailure    = errors.New("storage failure")

	// Outside the sale engine.
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Reconciliation checks.
const (
	CheckPaymentsVsTotal = "payments_vs_total"
	CheckItemsVsTotal    = "items_vs_total"
)

// ReconciliationError reports which monetary invariant failed and by how much.
type ReconciliationError struct {
	Check    string          `json:"check"`
	Expected decimal.Decimal `json:"expected"`
	Received decimal.Decimal `json:"received"`
}

func (e *ReconciliationError) Error() string {
	switch e.Check {
	case CheckPaymentsVsTotal:
		return fmt.Sprintf("payments do not match the sale total: expected %s, received %s",
			e.Expected.StringFixed(2), e.Received.StringFixed(2))
	case CheckItemsVsTotal:
		return fmt.Sprintf("items minus discount do not match the sale total: expected %s, received %s",
			e.Expected.StringFixed(2), e.Received.StringFixed(2))
	}
	return fmt.Sprintf("reconciliation failed (%s): expected %s, received %s",
		e.Check, e.Expected.StringFixed(2), e.Received.StringFixed(2))
}

func (e *ReconciliationError) Is(target error) bool { return target == ErrValidationFailed }

// MalformedBasketError is a shape violation caught before any arithmetic.
type MalformedBasketError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *MalformedBasketError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *MalformedBasketError) Is(target error) bool { return target == ErrValidationFailed }

// InsufficientStockError is raised when a variant cannot cover a request.
// Missing is set when the variant does not exist or was soft-deleted.
type InsufficientStockError struct {
	VariantID uuid.UUID `json:"variantId"`
	SKU       string    `json:"sku,omitempty"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Missing   bool      `json:"missing,omitempty"`
}

func (e *InsufficientStockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("variant %s not found", e.VariantID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock || (e.Missing && target == ErrNotFound)
}

// StorageError wraps an infrastructure failure. The wrapped error is for logs
// only and must not reach clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// asStorageFailure leaves domain errors untouched and wraps anything else.
func asStorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorageFailure) ||
		errors.Is(err, ErrConflict) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

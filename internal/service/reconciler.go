package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference accepted between declared and derived
// amounts.
var Tolerance = decimal.NewFromFloat(0.01)

// BasketItem is one requested line of a sale.
type BasketItem struct {
	VariantID   uuid.UUID
	Quantity    int
	PriceAtSale decimal.Decimal
}

// BasketPayment is one declared tender.
type BasketPayment struct {
	Method string
	Amount decimal.Decimal
}

// Basket is a sale attempt as submitted by the caller. Total is nil when the
// caller did not declare one.
type Basket struct {
	Total    *decimal.Decimal
	Discount decimal.Decimal
	Items    []BasketItem
	Payments []BasketPayment
}

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ExpectedTotal derives the amount to charge from the lines and the discount.
func ExpectedTotal(items []BasketItem, discount decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.PriceAtSale.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return round2(sum.Sub(discount))
}

func sumPayments(payments []BasketPayment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return round2(sum)
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Reconcile checks the basket shape and then ties payments, lines and discount
// together. It has no side effects. The first failing check is returned.
func Reconcile(b Basket) error {
	if err := checkShape(b); err != nil {
		return err
	}

	expected := ExpectedTotal(b.Items, b.Discount)
	if expected.IsNegative() {
		return &MalformedBasketError{Field: "discount", Reason: "exceeds the items subtotal"}
	}
	paid := sumPayments(b.Payments)

	// Without a declared total the derived one is authoritative.
	total := expected
	if b.Total != nil {
		total = round2(*b.Total)
	}

	if !withinTolerance(paid, total) {
		return &ReconciliationError{Check: CheckPaymentsVsTotal, Expected: total, Received: paid}
	}
	if !withinTolerance(expected, total) {
		return &ReconciliationError{Check: CheckItemsVsTotal, Expected: expected, Received: total}
	}
	// The derived total is what gets stored, so payments must also sit within
	// one cent of it; the two checks above alone allow a two-cent drift.
	if !withinTolerance(paid, expected) {
		return &ReconciliationError{Check: CheckPaymentsVsTotal, Expected: expected, Received: paid}
	}
	return nil
}

// hasSubCent reports whether d carries precision below one cent. Amounts are
// stored with two decimals and must round-trip unchanged.
func hasSubCent(d decimal.Decimal) bool {
	return !d.Equal(round2(d))
}

func checkShape(b Basket) error {
	if len(b.Items) == 0 {
		return &MalformedBasketError{Field: "items", Reason: "at least one item is required"}
	}
	if len(b.Payments) == 0 {
		return &MalformedBasketError{Field: "payments", Reason: "at least one payment is required"}
	}
	if b.Discount.IsNegative() {
		return &MalformedBasketError{Field: "discount", Reason: "must not be negative"}
	}
	if hasSubCent(b.Discount) {
		return &MalformedBasketError{Field: "discount", Reason: "must have at most two decimals"}
	}
	if b.Total != nil && b.Total.IsNegative() {
		return &MalformedBasketError{Field: "total", Reason: "must not be negative"}
	}
	if b.Total != nil && hasSubCent(*b.Total) {
		return &MalformedBasketError{Field: "total", Reason: "must have at most two decimals"}
	}
	for _, it := range b.Items {
		if it.VariantID == uuid.Nil {
			return &MalformedBasketError{Field: "items.variantId", Reason: "is required"}
		}
		if it.Quantity <= 0 {
			return &MalformedBasketError{Field: "items.quantity", Reason: "must be greater than zero"}
		}
		if it.PriceAtSale.IsNegative() {
			return &MalformedBasketError{Field: "items.priceAtSale", Reason: "must not be negative"}
		}
		if hasSubCent(it.PriceAtSale) {
			return &MalformedBasketError{Field: "items.priceAtSale", Reason: "must have at most two decimals"}
		}
	}
	for _, p := range b.Payments {
		if strings.TrimSpace(p.Method) == "" {
			return &MalformedBasketError{Field: "payments.method", Reason: "is required"}
		}
		if !p.Amount.IsPositive() {
			return &MalformedBasketError{Field: "payments.amount", Reason: "must be greater than zero"}
		}
		if hasSubCent(p.Amount) {
			return &MalformedBasketError{Field: "payments.amount", Reason: "must have at most two decimals"}
		}
	}
	return nil
}

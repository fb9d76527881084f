package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is the immutable header of a committed sale. Total is the amount
// charged after Discount. The sum of its Payments is within one cent of it.
type Sale struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID      `gorm:"type:uuid;index"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"index"`

	Items    []SaleItem    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
}

func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem freezes the unit price at the moment of sale; later catalog price
// changes never reach it.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Line        int             `gorm:"not null;default:0"` // basket position, 1-based
	Quantity    int             `gorm:"not null"`
	PriceAtSale decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time

	Variant *Variant `gorm:"foreignKey:VariantID"`
}

func (i *SaleItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Subtotal is Quantity × PriceAtSale.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.PriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SalePayment is one tender of a sale. Method is an open label
// (cash, card, transfer, ...).
type SalePayment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Line      int             `gorm:"not null;default:0"`
	Method    string          `gorm:"type:varchar(32);not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

func (p *SalePayment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

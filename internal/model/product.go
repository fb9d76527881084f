package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog entry a shopper recognizes ("Vintage T-shirt").
// Stock and prices live on its Variants.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Brand       string `gorm:"index"`
	Category    string `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Variants []Variant `gorm:"foreignKey:ProductID"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Variant is a sellable size/color configuration of a Product.
// Stock never drops below zero in a committed state; the CHECK backs up the
// guarded updates in the repository.
type Variant struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Size      string          `gorm:"not null"`
	Color     string          `gorm:"not null"`
	CostPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	SellPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Stock     int             `gorm:"not null;default:0;check:stock >= 0"`
	SKU       string          `gorm:"column:sku;type:varchar(64);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (v *Variant) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

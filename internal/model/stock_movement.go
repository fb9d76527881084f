package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock movement kinds.
const (
	MovementSale       = "sale"
	MovementAdjustment = "adjustment"
)

// StockMovement records every change to a variant's stock.
// It is written in the same transaction as the stock update it describes.
type StockMovement struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	VariantID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Kind          string     `gorm:"type:varchar(20);not null"` // "sale" | "adjustment"
	Delta         int        `gorm:"not null"`                  // positive = in, negative = out
	PreviousStock int        `gorm:"not null"`
	NewStock      int        `gorm:"not null"`
	Reason        string
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index"` // sale id when Kind == "sale"
	UserID        *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time  `gorm:"index"`

	Variant *Variant `gorm:"foreignKey:VariantID"`
}

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

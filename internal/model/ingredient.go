package model

import (
	"time"

	"gorm.io/gorm"
)

// Ingredient represents a purchasable stock item owned by a tenant.
// CurrentStock is never persisted negative: every mutation goes through
// the stock ledger, which floors the result at zero.
type Ingredient struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null;comment:'Tenant this ingredient belongs to'"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	Unit         string         `json:"unit" gorm:"type:varchar(20);not null"` // kg, g, l, ml, unit
	PricePerUnit float64        `json:"price_per_unit" gorm:"not null"`
	CurrentStock float64        `json:"current_stock" gorm:"default:0"`
	MinStock     float64        `json:"min_stock" gorm:"default:0"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Movement types for the stock audit log
const (
	MovementSale       = "sale"
	MovementPurchase   = "purchase"
	MovementAdjustment = "adjustment"
	MovementWaste      = "waste"
)

// StockMovement is the append-only audit trail of stock mutations.
// Its absence must never block the mutation it describes: inserts are
// best-effort and retried through the ledger outbox on failure.
type StockMovement struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	TenantID      uint      `json:"tenant_id" gorm:"index;not null"`
	IngredientID  uint      `json:"ingredient_id" gorm:"index;not null"`
	Quantity      float64   `json:"quantity" gorm:"not null"` // signed delta
	MovementType  string    `json:"movement_type" gorm:"type:varchar(20);not null"`
	ReferenceType string    `json:"reference_type,omitempty" gorm:"type:varchar(30)"`
	ReferenceID   string    `json:"reference_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt     time.Time `json:"created_at"`
}

package storage

import (
	"github.com/klaker79/lacaleta-api/internal/model"
	"gorm.io/gorm"
)

// MovementStore appends to and reads the stock movement audit log. It
// implements ledger.MovementRecorder. Writes deliberately use the pooled
// handle, never a caller's transaction: the ledger only records
// movements after the stock transaction has committed, and a failed
// audit insert must neither poison that transaction nor undo it.
type MovementStore struct {
	db *gorm.DB
}

// NewMovementStore creates a movement store over the given handle.
func NewMovementStore(db *gorm.DB) *MovementStore {
	return &MovementStore{db: db}
}

// Record appends one movement row.
func (s *MovementStore) Record(movement *model.StockMovement) error {
	return s.db.Create(movement).Error
}

// ListByIngredient returns the newest movements for an ingredient.
func (s *MovementStore) ListByIngredient(ingredientID, tenantID uint, limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []model.StockMovement
	err := s.db.
		Where("tenant_id = ? AND ingredient_id = ?", tenantID, ingredientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

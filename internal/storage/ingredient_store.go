// Package storage holds the GORM-backed implementations of the store
// interfaces declared by the domain packages.
package storage

import (
	"errors"

	"github.com/klaker79/lacaleta-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientStore persists ingredients. It implements
// ledger.IngredientStore and costing.IngredientStore.
type IngredientStore struct {
	db *gorm.DB
}

// NewIngredientStore creates an ingredient store over the given handle.
func NewIngredientStore(db *gorm.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

// LockIngredient acquires a SELECT ... FOR UPDATE row lock scoped to
// (id, tenant) inside the caller's transaction.
func (s *IngredientStore) LockIngredient(tx *gorm.DB, ingredientID, tenantID uint) (*model.Ingredient, error) {
	var ingredient model.Ingredient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", ingredientID, tenantID).
		First(&ingredient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &ingredient, nil
}

// UpdateStock writes the stock value for the locked row.
func (s *IngredientStore) UpdateStock(tx *gorm.DB, ingredientID, tenantID uint, newStock float64) error {
	return tx.Model(&model.Ingredient{}).
		Where("id = ? AND tenant_id = ?", ingredientID, tenantID).
		Update("current_stock", newStock).Error
}

// PriceIndex returns the tenant's ingredients among the given ids keyed
// by id. Soft-deleted ingredients are excluded, which is what makes a
// dangling recipe component show up as missing.
func (s *IngredientStore) PriceIndex(tenantID uint, ingredientIDs []uint) (map[uint]model.Ingredient, error) {
	index := make(map[uint]model.Ingredient, len(ingredientIDs))
	if len(ingredientIDs) == 0 {
		return index, nil
	}

	var ingredients []model.Ingredient
	err := s.db.
		Where("tenant_id = ? AND id IN ?", tenantID, ingredientIDs).
		Find(&ingredients).Error
	if err != nil {
		return nil, err
	}

	for _, ingredient := range ingredients {
		index[ingredient.ID] = ingredient
	}
	return index, nil
}

// Create inserts a new ingredient.
func (s *IngredientStore) Create(ingredient *model.Ingredient) error {
	return s.db.Create(ingredient).Error
}

// Get returns one ingredient scoped to the tenant.
func (s *IngredientStore) Get(ingredientID, tenantID uint) (*model.Ingredient, error) {
	var ingredient model.Ingredient
	err := s.db.
		Where("id = ? AND tenant_id = ?", ingredientID, tenantID).
		First(&ingredient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &ingredient, nil
}

// List returns the tenant's ingredients, optionally only active ones.
func (s *IngredientStore) List(tenantID uint, activeOnly bool) ([]model.Ingredient, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var ingredients []model.Ingredient
	if err := query.Order("name").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// Save persists field changes on an existing ingredient.
func (s *IngredientStore) Save(ingredient *model.Ingredient) error {
	return s.db.Save(ingredient).Error
}

// SoftDelete marks the ingredient deleted. Rows stay referenced by
// recipe components, which the cost engine then reports as missing.
func (s *IngredientStore) SoftDelete(ingredientID, tenantID uint) error {
	result := s.db.
		Where("id = ? AND tenant_id = ?", ingredientID, tenantID).
		Delete(&model.Ingredient{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

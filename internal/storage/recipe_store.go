package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"gorm.io/gorm"
)

// RecipeStore persists recipes and their cached cost fields. It
// implements costing.RecipeStore and recalc.RecipeFinder.
type RecipeStore struct {
	db *gorm.DB
}

// NewRecipeStore creates a recipe store over the given handle.
func NewRecipeStore(db *gorm.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// GetRecipe returns one recipe scoped to the tenant.
func (s *RecipeStore) GetRecipe(recipeID, tenantID uint) (*model.Recipe, error) {
	var recipe model.Recipe
	err := s.db.
		Where("id = ? AND tenant_id = ?", recipeID, tenantID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// SaveCostCache writes the breakdown's scalar totals onto the recipe's
// cached cost fields. The line detail is never persisted.
func (s *RecipeStore) SaveCostCache(recipeID, tenantID uint, breakdown *costing.CostBreakdown, at time.Time) error {
	return s.db.Model(&model.Recipe{}).
		Where("id = ? AND tenant_id = ?", recipeID, tenantID).
		Updates(map[string]interface{}{
			"last_cost":        breakdown.TotalCost,
			"cost_per_portion": breakdown.CostPerPortion,
			"margin_pct":       breakdown.MarginPct,
			"food_cost_pct":    breakdown.FoodCostPct,
			"cost_updated_at":  at,
		}).Error
}

// FindActiveByIngredient returns the tenant's active recipes whose
// component list references the ingredient. JSONB containment over the
// embedded list; gorm's soft-delete scope excludes deleted recipes.
func (s *RecipeStore) FindActiveByIngredient(ingredientID, tenantID uint) ([]model.Recipe, error) {
	var recipes []model.Recipe
	containment := fmt.Sprintf(`[{"ingredient_id": %d}]`, ingredientID)
	err := s.db.
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("components @> ?::jsonb", containment).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

// Create inserts a new recipe.
func (s *RecipeStore) Create(recipe *model.Recipe) error {
	return s.db.Create(recipe).Error
}

// List returns the tenant's recipes.
func (s *RecipeStore) List(tenantID uint, activeOnly bool) ([]model.Recipe, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var recipes []model.Recipe
	if err := query.Order("name").Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// Save persists field changes on an existing recipe.
func (s *RecipeStore) Save(recipe *model.Recipe) error {
	return s.db.Save(recipe).Error
}

// SoftDelete marks the recipe deleted.
func (s *RecipeStore) SoftDelete(recipeID, tenantID uint) error {
	result := s.db.
		Where("id = ? AND tenant_id = ?", recipeID, tenantID).
		Delete(&model.Recipe{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

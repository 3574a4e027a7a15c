// Package costing computes recipe cost breakdowns from ingredient
// prices and recipe composition.
package costing

import (
	"fmt"
	"time"

	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/klaker79/lacaleta-api/internal/units"
	"go.uber.org/zap"
)

// RecipeStore is the persistence surface the engine needs for recipes.
type RecipeStore interface {
	GetRecipe(recipeID, tenantID uint) (*model.Recipe, error)
	SaveCostCache(recipeID, tenantID uint, breakdown *CostBreakdown, at time.Time) error
}

// IngredientStore resolves ingredient prices for a tenant.
type IngredientStore interface {
	// PriceIndex returns the tenant's ingredients keyed by id. Missing
	// ids are simply absent from the map.
	PriceIndex(tenantID uint, ingredientIDs []uint) (map[uint]model.Ingredient, error)
}

// Engine is the recipe cost engine.
type Engine struct {
	recipes     RecipeStore
	ingredients IngredientStore
	log         *zap.Logger
}

// NewEngine creates a cost engine with its collaborators injected.
func NewEngine(recipes RecipeStore, ingredients IngredientStore, log *zap.Logger) *Engine {
	return &Engine{recipes: recipes, ingredients: ingredients, log: log}
}

// Calculate computes the cost breakdown for one recipe against the given
// price index. Components whose ingredient is absent from the index are
// recorded as missing and skipped; the calculation never aborts on them.
func (e *Engine) Calculate(recipe *model.Recipe, priceIndex map[uint]model.Ingredient) *CostBreakdown {
	breakdown := &CostBreakdown{
		RecipeID:           recipe.ID,
		Lines:              make([]BreakdownLine, 0, len(recipe.Components)),
		MissingIngredients: make([]uint, 0),
	}

	total := 0.0
	for _, component := range recipe.Components {
		ingredient, ok := priceIndex[component.IngredientID]
		if !ok {
			breakdown.MissingIngredients = append(breakdown.MissingIngredients, component.IngredientID)
			continue
		}

		normalized := units.Normalize(component.Quantity, component.Unit, ingredient.Unit)
		lineCost := round4(normalized * ingredient.PricePerUnit)

		breakdown.Lines = append(breakdown.Lines, BreakdownLine{
			IngredientID:       ingredient.ID,
			IngredientName:     ingredient.Name,
			Quantity:           component.Quantity,
			Unit:               component.Unit,
			NormalizedQuantity: normalized,
			UnitCost:           ingredient.PricePerUnit,
			LineCost:           lineCost,
			Converted:          units.Convertible(component.Unit, ingredient.Unit),
		})
		total += lineCost
	}

	breakdown.TotalCost = round2(total)

	portions := recipe.EffectivePortions()
	if portions > 0 {
		breakdown.CostPerPortion = round2(breakdown.TotalCost / float64(portions))
	} else {
		breakdown.CostPerPortion = breakdown.TotalCost
	}

	if recipe.SalePrice > 0 {
		breakdown.MarginPct = round1((recipe.SalePrice - breakdown.CostPerPortion) / recipe.SalePrice * 100)
		breakdown.FoodCostPct = round1(breakdown.CostPerPortion / recipe.SalePrice * 100)
	}

	breakdown.Complete = len(breakdown.MissingIngredients) == 0
	return breakdown
}

// CalculateForRecipe loads the recipe, computes its breakdown against
// current prices and persists the scalar totals onto the recipe's cached
// cost fields. Returns model.ErrNotFound when the recipe does not exist
// for the tenant.
func (e *Engine) CalculateForRecipe(recipeID, tenantID uint) (*model.Recipe, *CostBreakdown, error) {
	recipe, err := e.recipes.GetRecipe(recipeID, tenantID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint, 0, len(recipe.Components))
	for _, component := range recipe.Components {
		ids = append(ids, component.IngredientID)
	}

	priceIndex, err := e.ingredients.PriceIndex(tenantID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("building price index: %w", err)
	}

	breakdown := e.Calculate(recipe, priceIndex)

	now := time.Now()
	if err := e.recipes.SaveCostCache(recipeID, tenantID, breakdown, now); err != nil {
		return nil, nil, fmt.Errorf("persisting cost cache: %w", err)
	}

	// Mirror the persisted cache on the returned recipe
	recipe.LastCost = breakdown.TotalCost
	recipe.CostPerPortion = breakdown.CostPerPortion
	recipe.MarginPct = breakdown.MarginPct
	recipe.FoodCostPct = breakdown.FoodCostPct
	recipe.CostUpdatedAt = &now

	if !breakdown.Complete {
		e.log.Warn("Recipe costed with missing ingredients",
			zap.Uint("recipe_id", recipeID),
			zap.Uint("tenant_id", tenantID),
			zap.Uints("missing_ingredient_ids", breakdown.MissingIngredients))
	}

	return recipe, breakdown, nil
}

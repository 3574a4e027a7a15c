// Package recalc coordinates cascading cost recomputation when an
// ingredient price changes.
package recalc

import (
	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"go.uber.org/zap"
)

// RecipeFinder resolves the recipes that depend on an ingredient.
type RecipeFinder interface {
	// FindActiveByIngredient returns the tenant's active, non-deleted
	// recipes whose component list references the ingredient.
	FindActiveByIngredient(ingredientID, tenantID uint) ([]model.Recipe, error)
}

// CostCalculator recomputes and persists one recipe's cost.
type CostCalculator interface {
	CalculateForRecipe(recipeID, tenantID uint) (*model.Recipe, *costing.CostBreakdown, error)
}

// CostAlerter re-evaluates the recipe cost thresholds after a
// recomputation.
type CostAlerter interface {
	CheckRecipeCost(recipeID, tenantID uint, breakdown *costing.CostBreakdown, recipeName string) ([]*model.Alert, error)
}

// RecipeOutcome is the per-recipe result of a cascade.
type RecipeOutcome struct {
	RecipeID  uint    `json:"recipe_id"`
	Name      string  `json:"name"`
	Updated   bool    `json:"updated"`
	TotalCost float64 `json:"total_cost,omitempty"`
	MarginPct float64 `json:"margin_pct,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Result aggregates a cascade run.
type Result struct {
	UpdatedCount int             `json:"updated_count"`
	Recipes      []RecipeOutcome `json:"recipes"`
}

// Orchestrator fans a price change out to every dependent recipe. Each
// recipe recomputation commits independently; a crash mid-cascade leaves
// earlier recipes updated and later ones stale, which is acceptable
// because recomputation is idempotent and re-runnable.
type Orchestrator struct {
	recipes    RecipeFinder
	calculator CostCalculator
	alerts     CostAlerter
	log        *zap.Logger
}

// New creates a recalculation orchestrator.
func New(recipes RecipeFinder, calculator CostCalculator, alerts CostAlerter, log *zap.Logger) *Orchestrator {
	return &Orchestrator{recipes: recipes, calculator: calculator, alerts: alerts, log: log}
}

// RecalculateByIngredient recomputes every active recipe of the tenant
// that references the ingredient. A failure on one recipe is logged and
// recorded in its outcome; processing continues with the rest.
func (o *Orchestrator) RecalculateByIngredient(ingredientID, tenantID uint) (*Result, error) {
	dependents, err := o.recipes.FindActiveByIngredient(ingredientID, tenantID)
	if err != nil {
		return nil, err
	}

	result := &Result{Recipes: make([]RecipeOutcome, 0, len(dependents))}
	for _, recipe := range dependents {
		updated, breakdown, err := o.calculator.CalculateForRecipe(recipe.ID, tenantID)
		if err != nil {
			o.log.Warn("Recipe recalculation failed, skipping",
				zap.Uint("recipe_id", recipe.ID),
				zap.Uint("tenant_id", tenantID),
				zap.Uint("ingredient_id", ingredientID),
				zap.Error(err))
			result.Recipes = append(result.Recipes, RecipeOutcome{
				RecipeID: recipe.ID,
				Name:     recipe.Name,
				Error:    err.Error(),
			})
			continue
		}

		result.UpdatedCount++
		result.Recipes = append(result.Recipes, RecipeOutcome{
			RecipeID:  updated.ID,
			Name:      updated.Name,
			Updated:   true,
			TotalCost: breakdown.TotalCost,
			MarginPct: breakdown.MarginPct,
		})

		if o.alerts != nil {
			if _, err := o.alerts.CheckRecipeCost(updated.ID, tenantID, breakdown, updated.Name); err != nil {
				// alerting is downstream of the committed recompute;
				// its failure does not undo the update
				o.log.Warn("Recipe cost alert check failed",
					zap.Uint("recipe_id", updated.ID),
					zap.Uint("tenant_id", tenantID),
					zap.Error(err))
			}
		}
	}

	o.log.Info("Ingredient cascade recalculation finished",
		zap.Uint("ingredient_id", ingredientID),
		zap.Uint("tenant_id", tenantID),
		zap.Int("dependent_recipes", len(dependents)),
		zap.Int("updated", result.UpdatedCount))
	return result, nil
}

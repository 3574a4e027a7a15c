package recalc

import (
	"errors"
	"testing"

	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecipeFinder struct {
	recipes []model.Recipe
	err     error
}

func (f *fakeRecipeFinder) FindActiveByIngredient(ingredientID, tenantID uint) ([]model.Recipe, error) {
	return f.recipes, f.err
}

type fakeCalculator struct {
	failIDs map[uint]error
	calls   []uint
}

func (f *fakeCalculator) CalculateForRecipe(recipeID, tenantID uint) (*model.Recipe, *costing.CostBreakdown, error) {
	f.calls = append(f.calls, recipeID)
	if err, ok := f.failIDs[recipeID]; ok {
		return nil, nil, err
	}
	recipe := &model.Recipe{ID: recipeID, TenantID: tenantID, Name: "Recipe"}
	return recipe, &costing.CostBreakdown{RecipeID: recipeID, TotalCost: 4.2, MarginPct: 65, Complete: true}, nil
}

type fakeAlerter struct {
	checked []uint
	err     error
}

func (f *fakeAlerter) CheckRecipeCost(recipeID, tenantID uint, breakdown *costing.CostBreakdown, recipeName string) ([]*model.Alert, error) {
	f.checked = append(f.checked, recipeID)
	return nil, f.err
}

func TestRecalculateByIngredient_AllUpdated(t *testing.T) {
	finder := &fakeRecipeFinder{recipes: []model.Recipe{{ID: 1}, {ID: 2}, {ID: 3}}}
	calculator := &fakeCalculator{}
	alerter := &fakeAlerter{}
	orchestrator := New(finder, calculator, alerter, zap.NewNop())

	result, err := orchestrator.RecalculateByIngredient(7, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.UpdatedCount)
	assert.Len(t, result.Recipes, 3)
	assert.Equal(t, []uint{1, 2, 3}, calculator.calls)
	assert.Equal(t, []uint{1, 2, 3}, alerter.checked)
}

func TestRecalculateByIngredient_FailureIsSkippedNotFatal(t *testing.T) {
	finder := &fakeRecipeFinder{recipes: []model.Recipe{{ID: 1}, {ID: 2}, {ID: 3}}}
	calculator := &fakeCalculator{failIDs: map[uint]error{2: model.ErrNotFound}}
	orchestrator := New(finder, calculator, &fakeAlerter{}, zap.NewNop())

	result, err := orchestrator.RecalculateByIngredient(7, 1)
	require.NoError(t, err)

	// the soft-deleted/broken recipe is reported, the other two proceed
	assert.Equal(t, 2, result.UpdatedCount)
	require.Len(t, result.Recipes, 3)
	assert.True(t, result.Recipes[0].Updated)
	assert.False(t, result.Recipes[1].Updated)
	assert.NotEmpty(t, result.Recipes[1].Error)
	assert.True(t, result.Recipes[2].Updated)
}

func TestRecalculateByIngredient_NoDependents(t *testing.T) {
	orchestrator := New(&fakeRecipeFinder{}, &fakeCalculator{}, &fakeAlerter{}, zap.NewNop())

	result, err := orchestrator.RecalculateByIngredient(7, 1)
	require.NoError(t, err)
	assert.Zero(t, result.UpdatedCount)
	assert.Empty(t, result.Recipes)
}

func TestRecalculateByIngredient_FinderErrorIsFatal(t *testing.T) {
	findErr := errors.New("connection refused")
	orchestrator := New(&fakeRecipeFinder{err: findErr}, &fakeCalculator{}, &fakeAlerter{}, zap.NewNop())

	_, err := orchestrator.RecalculateByIngredient(7, 1)
	assert.ErrorIs(t, err, findErr)
}

func TestRecalculateByIngredient_AlertFailureDoesNotUndoUpdate(t *testing.T) {
	finder := &fakeRecipeFinder{recipes: []model.Recipe{{ID: 1}}}
	alerter := &fakeAlerter{err: errors.New("alerts table locked")}
	orchestrator := New(finder, &fakeCalculator{}, alerter, zap.NewNop())

	result, err := orchestrator.RecalculateByIngredient(7, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)
}

package costing

import (
	"errors"
	"testing"
	"time"

	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecipeStore struct {
	recipes    map[uint]*model.Recipe
	savedAt    *time.Time
	saved      *CostBreakdown
	saveErr    error
	getErrById map[uint]error
}

func (f *fakeRecipeStore) GetRecipe(recipeID, tenantID uint) (*model.Recipe, error) {
	if err, ok := f.getErrById[recipeID]; ok {
		return nil, err
	}
	recipe, ok := f.recipes[recipeID]
	if !ok || recipe.TenantID != tenantID {
		return nil, model.ErrNotFound
	}
	copied := *recipe
	return &copied, nil
}

func (f *fakeRecipeStore) SaveCostCache(recipeID, tenantID uint, breakdown *CostBreakdown, at time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = breakdown
	f.savedAt = &at
	return nil
}

type fakeIngredientStore struct {
	index map[uint]model.Ingredient
	err   error
}

func (f *fakeIngredientStore) PriceIndex(tenantID uint, ingredientIDs []uint) (map[uint]model.Ingredient, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[uint]model.Ingredient)
	for _, id := range ingredientIDs {
		if ing, ok := f.index[id]; ok && ing.TenantID == tenantID {
			result[id] = ing
		}
	}
	return result, nil
}

func newTestEngine(recipes *fakeRecipeStore, ingredients *fakeIngredientStore) *Engine {
	return NewEngine(recipes, ingredients, zap.NewNop())
}

func TestCalculate_SinglePortionMargin(t *testing.T) {
	// 500 g of a 10.00/kg ingredient, sold at 20.00
	recipe := &model.Recipe{
		ID:        1,
		TenantID:  1,
		Portions:  1,
		SalePrice: 20.00,
		Components: model.RecipeComponents{
			{IngredientID: 7, Quantity: 500, Unit: "g"},
		},
	}
	index := map[uint]model.Ingredient{
		7: {ID: 7, TenantID: 1, Name: "Flour", Unit: "kg", PricePerUnit: 10.00},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)

	require.Len(t, breakdown.Lines, 1)
	assert.InDelta(t, 0.5, breakdown.Lines[0].NormalizedQuantity, 1e-9)
	assert.InDelta(t, 5.00, breakdown.Lines[0].LineCost, 1e-9)
	assert.InDelta(t, 5.00, breakdown.TotalCost, 1e-9)
	assert.InDelta(t, 5.00, breakdown.CostPerPortion, 1e-9)
	assert.InDelta(t, 75.0, breakdown.MarginPct, 1e-9)
	assert.InDelta(t, 25.0, breakdown.FoodCostPct, 1e-9)
	assert.True(t, breakdown.Complete)
}

func TestCalculate_MissingIngredientIsRecoverable(t *testing.T) {
	recipe := &model.Recipe{
		ID:        2,
		TenantID:  1,
		Portions:  2,
		SalePrice: 12.00,
		Components: model.RecipeComponents{
			{IngredientID: 7, Quantity: 1, Unit: "kg"},
			{IngredientID: 99, Quantity: 200, Unit: "g"}, // deleted ingredient
		},
	}
	index := map[uint]model.Ingredient{
		7: {ID: 7, TenantID: 1, Name: "Flour", Unit: "kg", PricePerUnit: 4.00},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)

	assert.Len(t, breakdown.Lines, 1)
	assert.Equal(t, []uint{99}, breakdown.MissingIngredients)
	assert.False(t, breakdown.Complete)
	assert.InDelta(t, 4.00, breakdown.TotalCost, 1e-9)
	assert.InDelta(t, 2.00, breakdown.CostPerPortion, 1e-9)
}

func TestCalculate_TotalEqualsSumOfLines(t *testing.T) {
	recipe := &model.Recipe{
		ID:        3,
		TenantID:  1,
		Portions:  1,
		SalePrice: 30.00,
		Components: model.RecipeComponents{
			{IngredientID: 1, Quantity: 333, Unit: "g"},
			{IngredientID: 2, Quantity: 125, Unit: "ml"},
			{IngredientID: 3, Quantity: 2, Unit: "unit"},
		},
	}
	index := map[uint]model.Ingredient{
		1: {ID: 1, TenantID: 1, Unit: "kg", PricePerUnit: 7.77},
		2: {ID: 2, TenantID: 1, Unit: "l", PricePerUnit: 3.33},
		3: {ID: 3, TenantID: 1, Unit: "unit", PricePerUnit: 0.45},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)

	sum := 0.0
	for _, line := range breakdown.Lines {
		sum += line.LineCost
	}
	assert.InDelta(t, sum, breakdown.TotalCost, 0.01)
}

func TestCalculate_MarginPlusFoodCostNearHundred(t *testing.T) {
	recipe := &model.Recipe{
		ID:        4,
		TenantID:  1,
		Portions:  3,
		SalePrice: 17.35,
		Components: model.RecipeComponents{
			{IngredientID: 1, Quantity: 741, Unit: "g"},
		},
	}
	index := map[uint]model.Ingredient{
		1: {ID: 1, TenantID: 1, Unit: "kg", PricePerUnit: 9.13},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)
	assert.InDelta(t, 100.0, breakdown.MarginPct+breakdown.FoodCostPct, 0.1)
}

func TestCalculate_UnconvertiblePairIsFlagged(t *testing.T) {
	recipe := &model.Recipe{
		ID:        7,
		TenantID:  1,
		Portions:  1,
		SalePrice: 15,
		Components: model.RecipeComponents{
			{IngredientID: 1, Quantity: 250, Unit: "g"},
			{IngredientID: 2, Quantity: 2, Unit: "unit"}, // ingredient stored in kg
		},
	}
	index := map[uint]model.Ingredient{
		1: {ID: 1, TenantID: 1, Unit: "kg", PricePerUnit: 4.00},
		2: {ID: 2, TenantID: 1, Unit: "kg", PricePerUnit: 3.00},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)

	require.Len(t, breakdown.Lines, 2)
	assert.True(t, breakdown.Lines[0].Converted)

	// no factor for unit->kg: raw quantity costed as-is and flagged
	assert.False(t, breakdown.Lines[1].Converted)
	assert.InDelta(t, 2, breakdown.Lines[1].NormalizedQuantity, 1e-9)
	assert.InDelta(t, 6.00, breakdown.Lines[1].LineCost, 1e-9)
}

func TestCalculate_ZeroSalePriceLeavesPercentagesZero(t *testing.T) {
	recipe := &model.Recipe{
		ID:       5,
		TenantID: 1,
		Portions: 1,
		Components: model.RecipeComponents{
			{IngredientID: 1, Quantity: 1, Unit: "kg"},
		},
	}
	index := map[uint]model.Ingredient{
		1: {ID: 1, TenantID: 1, Unit: "kg", PricePerUnit: 2.50},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)
	assert.Zero(t, breakdown.MarginPct)
	assert.Zero(t, breakdown.FoodCostPct)
}

func TestCalculate_InvalidPortionsDefaultToOne(t *testing.T) {
	recipe := &model.Recipe{
		ID:        6,
		TenantID:  1,
		Portions:  0,
		SalePrice: 10,
		Components: model.RecipeComponents{
			{IngredientID: 1, Quantity: 2, Unit: "kg"},
		},
	}
	index := map[uint]model.Ingredient{
		1: {ID: 1, TenantID: 1, Unit: "kg", PricePerUnit: 3},
	}

	breakdown := newTestEngine(nil, nil).Calculate(recipe, index)
	assert.InDelta(t, 6.00, breakdown.CostPerPortion, 1e-9)
}

func TestCalculateForRecipe_PersistsCache(t *testing.T) {
	recipes := &fakeRecipeStore{
		recipes: map[uint]*model.Recipe{
			1: {
				ID:        1,
				TenantID:  5,
				Portions:  1,
				SalePrice: 20,
				Components: model.RecipeComponents{
					{IngredientID: 7, Quantity: 500, Unit: "g"},
				},
			},
		},
	}
	ingredients := &fakeIngredientStore{
		index: map[uint]model.Ingredient{
			7: {ID: 7, TenantID: 5, Name: "Flour", Unit: "kg", PricePerUnit: 10},
		},
	}

	engine := newTestEngine(recipes, ingredients)
	recipe, breakdown, err := engine.CalculateForRecipe(1, 5)

	require.NoError(t, err)
	require.NotNil(t, recipes.saved)
	assert.InDelta(t, 5.00, recipes.saved.TotalCost, 1e-9)
	assert.InDelta(t, 5.00, recipe.LastCost, 1e-9)
	assert.InDelta(t, 75.0, recipe.MarginPct, 1e-9)
	assert.NotNil(t, recipe.CostUpdatedAt)
	assert.True(t, breakdown.Complete)
}

func TestCalculateForRecipe_NotFound(t *testing.T) {
	recipes := &fakeRecipeStore{recipes: map[uint]*model.Recipe{}}
	engine := newTestEngine(recipes, &fakeIngredientStore{})

	_, _, err := engine.CalculateForRecipe(42, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCalculateForRecipe_WrongTenantIsNotFound(t *testing.T) {
	recipes := &fakeRecipeStore{
		recipes: map[uint]*model.Recipe{
			1: {ID: 1, TenantID: 5},
		},
	}
	engine := newTestEngine(recipes, &fakeIngredientStore{})

	_, _, err := engine.CalculateForRecipe(1, 6)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCalculateForRecipe_IndexFailurePropagates(t *testing.T) {
	recipes := &fakeRecipeStore{
		recipes: map[uint]*model.Recipe{
			1: {ID: 1, TenantID: 5, Components: model.RecipeComponents{{IngredientID: 1, Quantity: 1, Unit: "kg"}}},
		},
	}
	storeErr := errors.New("connection reset")
	engine := newTestEngine(recipes, &fakeIngredientStore{err: storeErr})

	_, _, err := engine.CalculateForRecipe(1, 5)
	assert.ErrorIs(t, err, storeErr)
}

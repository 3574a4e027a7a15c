package costing

import "math"

// BreakdownLine is the costed detail for one recipe component.
type BreakdownLine struct {
	IngredientID       uint    `json:"ingredient_id"`
	IngredientName     string  `json:"ingredient_name"`
	Quantity           float64 `json:"quantity"` // raw, as written on the recipe
	Unit               string  `json:"unit"`
	NormalizedQuantity float64 `json:"normalized_quantity"` // in the ingredient's unit
	UnitCost           float64 `json:"unit_cost"`
	LineCost           float64 `json:"line_cost"` // rounded to 4 decimals
	// Converted is false when no conversion factor exists for the unit
	// pair and the raw quantity was costed as-is.
	Converted bool `json:"converted"`
}

// CostBreakdown is the transient result of one cost calculation. It is
// created fresh on every run and never persisted as-is: only its scalar
// totals are written back onto the recipe's cached fields.
type CostBreakdown struct {
	RecipeID           uint            `json:"recipe_id"`
	Lines              []BreakdownLine `json:"lines"`
	MissingIngredients []uint          `json:"missing_ingredients"`
	TotalCost          float64         `json:"total_cost"`
	CostPerPortion     float64         `json:"cost_per_portion"`
	MarginPct          float64         `json:"margin_pct"`
	FoodCostPct        float64         `json:"food_cost_pct"`
	Complete           bool            `json:"complete"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

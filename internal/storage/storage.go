package storage

import (
	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/ledger"
	"github.com/klaker79/lacaleta-api/internal/recalc"
)

// Compile-time checks that the stores satisfy the interfaces the domain
// packages declare.
var (
	_ ledger.IngredientStore  = (*IngredientStore)(nil)
	_ costing.IngredientStore = (*IngredientStore)(nil)
	_ costing.RecipeStore     = (*RecipeStore)(nil)
	_ recalc.RecipeFinder     = (*RecipeStore)(nil)
	_ ledger.MovementRecorder = (*MovementStore)(nil)
	_ alerting.AlertStore     = (*AlertStore)(nil)
)

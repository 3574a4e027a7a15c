package handler

import (
	"fmt"
	"net/http"

	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/ledger"
	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/klaker79/lacaleta-api/internal/storage"
	"github.com/klaker79/lacaleta-api/internal/units"
	"github.com/klaker79/lacaleta-api/pkg/logger"
	"github.com/klaker79/lacaleta-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaleRequest defines the structure for registering a sale
type SaleRequest struct {
	RecipeID uint    `json:"recipe_id"`
	Quantity float64 `json:"quantity"`
}

// PurchaseRequest defines the structure for registering a purchase receipt
type PurchaseRequest struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Reference    string  `json:"reference"`
}

// SaleHandler turns sales and purchase receipts into stock deductions
// through the ledger
type SaleHandler struct {
	db          ledger.TxRunner
	recipes     *storage.RecipeStore
	ingredients *storage.IngredientStore
	stockLedger *ledger.Ledger
	alerts      *alerting.Machine
}

// NewSaleHandler wires the sale handler with its services
func NewSaleHandler(db ledger.TxRunner, recipes *storage.RecipeStore, ingredients *storage.IngredientStore, stockLedger *ledger.Ledger, alerts *alerting.Machine) *SaleHandler {
	return &SaleHandler{db: db, recipes: recipes, ingredients: ingredients, stockLedger: stockLedger, alerts: alerts}
}

// RegisterSale deducts every recipe component from stock in one
// transaction. Component quantities are normalized to each ingredient's
// stock unit and multiplied by the portions sold. Components whose
// ingredient no longer exists are skipped and reported, never fatal.
func (h *SaleHandler) RegisterSale(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.RecipeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipe_id is required"})
	}
	if req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}

	recipe, err := h.recipes.GetRecipe(req.RecipeID, tenant)
	if err != nil {
		return respondError(c, log, err, "recipe")
	}

	ids := make([]uint, 0, len(recipe.Components))
	for _, component := range recipe.Components {
		ids = append(ids, component.IngredientID)
	}
	index, err := h.ingredients.PriceIndex(tenant, ids)
	if err != nil {
		return respondError(c, log, err, "sale")
	}

	reason := ledger.Reason{
		MovementType:  model.MovementSale,
		ReferenceType: "sale",
		ReferenceID:   fmt.Sprintf("recipe:%d", recipe.ID),
	}

	applied := make([]ledger.DeltaResult, 0, len(recipe.Components))
	movements := make([]*model.StockMovement, 0, len(recipe.Components))
	missing := make([]uint, 0)
	err = h.db.Transaction(func(tx *gorm.DB) error {
		for _, component := range recipe.Components {
			ingredient, found := index[component.IngredientID]
			if !found {
				missing = append(missing, component.IngredientID)
				continue
			}
			deduction := units.Normalize(component.Quantity, component.Unit, ingredient.Unit) * req.Quantity
			result, movement, err := h.stockLedger.ApplyDeltaTx(tx, component.IngredientID, tenant, -deduction, reason)
			if err != nil {
				return err
			}
			applied = append(applied, *result)
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return respondError(c, log, err, "sale")
	}
	h.stockLedger.RecordMovements(movements)

	for range applied {
		prometheus.RecordStockOperation(model.MovementSale)
	}
	for _, id := range missing {
		log.Warn("Sale component skipped, ingredient missing",
			zap.Uint("recipe_id", recipe.ID),
			zap.Uint("ingredient_id", id))
	}
	h.checkLowStock(c, tenant, index, applied)

	log.Info("Sale registered",
		zap.Uint("recipe_id", recipe.ID),
		zap.Uint("tenant_id", tenant),
		zap.Float64("quantity", req.Quantity),
		zap.Int("components_applied", len(applied)))
	return c.JSON(http.StatusOK, echo.Map{
		"recipe_id":           recipe.ID,
		"quantity":            req.Quantity,
		"results":             applied,
		"missing_ingredients": missing,
	})
}

// RegisterPurchase adds received goods to stock
func (h *SaleHandler) RegisterPurchase(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.IngredientID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ingredient_id is required"})
	}
	if req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}

	reason := ledger.Reason{
		MovementType:  model.MovementPurchase,
		ReferenceType: "purchase",
		ReferenceID:   req.Reference,
	}
	result, err := h.stockLedger.ApplyDelta(req.IngredientID, tenant, req.Quantity, reason)
	if err != nil {
		return respondError(c, log, err, "ingredient")
	}
	prometheus.RecordStockOperation(model.MovementPurchase)

	log.Info("Purchase registered",
		zap.Uint("ingredient_id", req.IngredientID),
		zap.Uint("tenant_id", tenant),
		zap.Float64("quantity", req.Quantity))
	return c.JSON(http.StatusOK, result)
}

// checkLowStock runs the low-stock check against the post-mutation
// values. The index carries name and minimum; failures are logged only,
// the deductions are already committed.
func (h *SaleHandler) checkLowStock(c echo.Context, tenant uint, index map[uint]model.Ingredient, applied []ledger.DeltaResult) {
	log := logger.FromContext(c)
	for _, result := range applied {
		ingredient, found := index[result.IngredientID]
		if !found {
			continue
		}
		alert, err := h.alerts.CheckLowStock(result.IngredientID, tenant, ingredient.Name, result.NewStock, ingredient.MinStock)
		if err != nil {
			log.Warn("Low stock alert check failed",
				zap.Uint("ingredient_id", result.IngredientID),
				zap.Error(err))
			continue
		}
		if alert != nil {
			prometheus.RecordAlertCreated(alert.Type, alert.Severity)
		}
	}
}

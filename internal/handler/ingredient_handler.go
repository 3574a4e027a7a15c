package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/ledger"
	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/klaker79/lacaleta-api/internal/recalc"
	"github.com/klaker79/lacaleta-api/internal/storage"
	"github.com/klaker79/lacaleta-api/pkg/logger"
	"github.com/klaker79/lacaleta-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IngredientRequest defines the structure for ingredient creation/update requests
type IngredientRequest struct {
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	CurrentStock float64 `json:"current_stock"`
	MinStock     float64 `json:"min_stock"`
	IsActive     *bool   `json:"is_active"`
}

// StockDeltaRequest is one signed stock mutation
type StockDeltaRequest struct {
	Delta       float64 `json:"delta"`
	Reason      string  `json:"reason"`
	ReferenceID string  `json:"reference_id"`
}

// BulkStockDeltaRequest is a list of stock mutations applied in one transaction
type BulkStockDeltaRequest struct {
	Items  []ledger.BulkItem `json:"items"`
	Reason string            `json:"reason"`
}

func validateIngredientRequest(req *IngredientRequest) string {
	if req.Name == "" || req.Unit == "" {
		return "name and unit are required"
	}
	if req.PricePerUnit < 0 || req.CurrentStock < 0 || req.MinStock < 0 {
		return "price and stock values cannot be negative"
	}
	return ""
}

// applyIngredientUpdate overwrites the mutable fields from the request.
// Full-replace semantics: every field of the body is taken as the new
// value. Stock is excluded, it only moves through the ledger.
func applyIngredientUpdate(ingredient *model.Ingredient, req *IngredientRequest) {
	ingredient.Name = req.Name
	ingredient.Unit = req.Unit
	ingredient.PricePerUnit = req.PricePerUnit
	ingredient.MinStock = req.MinStock
	if req.IsActive != nil {
		ingredient.IsActive = *req.IsActive
	}
}

// IngredientHandler exposes ingredient CRUD and the stock ledger operations
type IngredientHandler struct {
	ingredients  *storage.IngredientStore
	movements    *storage.MovementStore
	stockLedger  *ledger.Ledger
	alerts       *alerting.Machine
	orchestrator *recalc.Orchestrator
}

// NewIngredientHandler wires the ingredient handler with its services
func NewIngredientHandler(
	ingredients *storage.IngredientStore,
	movements *storage.MovementStore,
	stockLedger *ledger.Ledger,
	alerts *alerting.Machine,
	orchestrator *recalc.Orchestrator,
) *IngredientHandler {
	return &IngredientHandler{
		ingredients:  ingredients,
		movements:    movements,
		stockLedger:  stockLedger,
		alerts:       alerts,
		orchestrator: orchestrator,
	}
}

// Create handles creating a new ingredient
func (h *IngredientHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	var req IngredientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if msg := validateIngredientRequest(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	ingredient := model.Ingredient{
		TenantID:     tenant,
		Name:         req.Name,
		Unit:         req.Unit,
		PricePerUnit: req.PricePerUnit,
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		IsActive:     active,
	}
	if err := h.ingredients.Create(&ingredient); err != nil {
		return respondError(c, log, err, "ingredient")
	}

	log.Info("Ingredient created",
		zap.Uint("ingredient_id", ingredient.ID),
		zap.Uint("tenant_id", tenant),
		zap.String("name", ingredient.Name))
	return c.JSON(http.StatusCreated, ingredient)
}

// List handles retrieving the tenant's ingredients
func (h *IngredientHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	activeOnly := c.QueryParam("active") == "true"
	ingredients, err := h.ingredients.List(tenant, activeOnly)
	if err != nil {
		return respondError(c, log, err, "ingredients")
	}
	return c.JSON(http.StatusOK, ingredients)
}

// Get handles retrieving a single ingredient
func (h *IngredientHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	ingredient, err := h.ingredients.Get(id, tenant)
	if err != nil {
		return respondError(c, log, err, "ingredient")
	}
	return c.JSON(http.StatusOK, ingredient)
}

// Update handles ingredient updates. A price increase is the explicit
// price-change event: it runs the price-increase alert check and fans
// out the cost recalculation to every dependent recipe.
func (h *IngredientHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	var req IngredientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if msg := validateIngredientRequest(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ingredient, err := h.ingredients.Get(id, tenant)
	if err != nil {
		return respondError(c, log, err, "ingredient")
	}

	oldPrice := ingredient.PricePerUnit
	applyIngredientUpdate(ingredient, &req)

	if err := h.ingredients.Save(ingredient); err != nil {
		return respondError(c, log, err, "ingredient")
	}

	response := echo.Map{"ingredient": ingredient}

	if ingredient.PricePerUnit != oldPrice {
		if ingredient.PricePerUnit > oldPrice {
			alert, err := h.alerts.CheckPriceIncrease(ingredient.ID, tenant, ingredient.Name, oldPrice, ingredient.PricePerUnit)
			if err != nil {
				log.Warn("Price increase alert check failed", zap.Error(err))
			} else if alert != nil {
				prometheus.RecordAlertCreated(alert.Type, alert.Severity)
				response["price_alert"] = alert
			}
		}

		defer prometheus.TrackRecalculation("price_change")(time.Now())
		cascade, err := h.orchestrator.RecalculateByIngredient(ingredient.ID, tenant)
		if err != nil {
			log.Warn("Cascade recalculation failed after price change",
				zap.Uint("ingredient_id", ingredient.ID),
				zap.Error(err))
		} else {
			prometheus.RecipesRecalculated.Add(float64(cascade.UpdatedCount))
			response["recalculation"] = cascade
		}
	}

	log.Info("Ingredient updated",
		zap.Uint("ingredient_id", ingredient.ID),
		zap.Uint("tenant_id", tenant),
		zap.Float64("old_price", oldPrice),
		zap.Float64("new_price", ingredient.PricePerUnit))
	return c.JSON(http.StatusOK, response)
}

// Delete handles soft-deleting an ingredient
func (h *IngredientHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	if err := h.ingredients.SoftDelete(id, tenant); err != nil {
		return respondError(c, log, err, "ingredient")
	}
	log.Info("Ingredient deleted", zap.Uint("ingredient_id", id), zap.Uint("tenant_id", tenant))
	return c.JSON(http.StatusOK, echo.Map{"message": "ingredient deleted"})
}

// ApplyStockDelta handles a single signed stock mutation
func (h *IngredientHandler) ApplyStockDelta(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	var req StockDeltaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	movementType := normalizeMovementType(req.Reason)

	ingredient, err := h.ingredients.Get(id, tenant)
	if err != nil {
		return respondError(c, log, err, "ingredient")
	}

	result, err := h.stockLedger.ApplyDelta(id, tenant, req.Delta, ledger.Reason{
		MovementType:  movementType,
		ReferenceType: "manual",
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		return respondError(c, log, err, "ingredient")
	}
	prometheus.RecordStockOperation(movementType)
	if req.Delta < 0 && ingredient.CurrentStock+req.Delta < 0 {
		prometheus.StockTruncationCounter.Inc()
	}

	response := echo.Map{"id": result.IngredientID, "new_stock": result.NewStock}
	alert, err := h.alerts.CheckLowStock(id, tenant, ingredient.Name, result.NewStock, ingredient.MinStock)
	if err != nil {
		log.Warn("Low stock alert check failed", zap.Uint("ingredient_id", id), zap.Error(err))
	} else if alert != nil {
		response["alert"] = alert
	}

	return c.JSON(http.StatusOK, response)
}

// ApplyStockDeltaBulk handles a batch of stock mutations with
// partial-success semantics
func (h *IngredientHandler) ApplyStockDeltaBulk(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	var req BulkStockDeltaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items are required"})
	}
	movementType := normalizeMovementType(req.Reason)

	result, err := h.stockLedger.ApplyDeltaBulk(req.Items, tenant, ledger.Reason{
		MovementType:  movementType,
		ReferenceType: "bulk",
	})
	if err != nil {
		return respondError(c, log, err, "stock batch")
	}

	for range result.Results {
		prometheus.RecordStockOperation(movementType)
	}
	h.checkLowStockBatch(c, tenant, result.Results)

	return c.JSON(http.StatusOK, result)
}

// ListMovements returns the audit trail for one ingredient
func (h *IngredientHandler) ListMovements(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	movements, err := h.movements.ListByIngredient(id, tenant, limit)
	if err != nil {
		return respondError(c, log, err, "movements")
	}
	return c.JSON(http.StatusOK, movements)
}

// checkLowStockBatch runs the low-stock check for every applied item.
// Alert failures are logged, never surfaced: the mutations are already
// committed.
func (h *IngredientHandler) checkLowStockBatch(c echo.Context, tenant uint, results []ledger.DeltaResult) {
	log := logger.FromContext(c)
	for _, applied := range results {
		ingredient, err := h.ingredients.Get(applied.IngredientID, tenant)
		if err != nil {
			log.Warn("Low stock check skipped, ingredient lookup failed",
				zap.Uint("ingredient_id", applied.IngredientID),
				zap.Error(err))
			continue
		}
		if _, err := h.alerts.CheckLowStock(applied.IngredientID, tenant, ingredient.Name, applied.NewStock, ingredient.MinStock); err != nil {
			log.Warn("Low stock alert check failed",
				zap.Uint("ingredient_id", applied.IngredientID),
				zap.Error(err))
		}
	}
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func normalizeMovementType(reason string) string {
	switch reason {
	case model.MovementSale, model.MovementPurchase, model.MovementWaste:
		return reason
	default:
		return model.MovementAdjustment
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/klaker79/lacaleta-api/internal/recalc"
	"github.com/klaker79/lacaleta-api/internal/storage"
	"github.com/klaker79/lacaleta-api/pkg/logger"
	"github.com/klaker79/lacaleta-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RecipeRequest defines the structure for recipe creation/update requests
type RecipeRequest struct {
	Name       string                  `json:"name"`
	Portions   int                     `json:"portions"`
	SalePrice  float64                 `json:"sale_price"`
	Components []model.RecipeComponent `json:"components"`
	IsActive   *bool                   `json:"is_active"`
}

// RecipeHandler exposes recipe CRUD and the costing operations
type RecipeHandler struct {
	recipes      *storage.RecipeStore
	engine       *costing.Engine
	alerts       *alerting.Machine
	orchestrator *recalc.Orchestrator
}

// NewRecipeHandler wires the recipe handler with its services
func NewRecipeHandler(recipes *storage.RecipeStore, engine *costing.Engine, alerts *alerting.Machine, orchestrator *recalc.Orchestrator) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, engine: engine, alerts: alerts, orchestrator: orchestrator}
}

func validateRecipeRequest(req *RecipeRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if req.SalePrice < 0 {
		return "sale_price cannot be negative"
	}
	for _, component := range req.Components {
		if component.IngredientID == 0 {
			return "every component needs an ingredient_id"
		}
		if component.Quantity <= 0 {
			return "component quantities must be positive"
		}
	}
	return ""
}

// Create handles creating a new recipe and computes its initial cost
func (h *RecipeHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	var req RecipeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if msg := validateRecipeRequest(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	portions := req.Portions
	if portions < 1 {
		portions = 1
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	recipe := model.Recipe{
		TenantID:   tenant,
		Name:       req.Name,
		Portions:   portions,
		SalePrice:  req.SalePrice,
		Components: req.Components,
		IsActive:   active,
	}
	if err := h.recipes.Create(&recipe); err != nil {
		return respondError(c, log, err, "recipe")
	}

	updated, breakdown, err := h.engine.CalculateForRecipe(recipe.ID, tenant)
	if err != nil {
		// the recipe exists even if the initial costing failed
		log.Warn("Initial cost calculation failed", zap.Uint("recipe_id", recipe.ID), zap.Error(err))
		return c.JSON(http.StatusCreated, echo.Map{"recipe": recipe})
	}
	h.runCostAlerts(c, tenant, updated, breakdown)

	log.Info("Recipe created",
		zap.Uint("recipe_id", recipe.ID),
		zap.Uint("tenant_id", tenant),
		zap.String("name", recipe.Name),
		zap.Float64("cost_per_portion", breakdown.CostPerPortion))
	return c.JSON(http.StatusCreated, echo.Map{"recipe": updated, "breakdown": breakdown})
}

// List handles retrieving the tenant's recipes
func (h *RecipeHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	activeOnly := c.QueryParam("active") == "true"
	recipes, err := h.recipes.List(tenant, activeOnly)
	if err != nil {
		return respondError(c, log, err, "recipes")
	}
	return c.JSON(http.StatusOK, recipes)
}

// Get handles retrieving a single recipe
func (h *RecipeHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipe id"})
	}

	recipe, err := h.recipes.GetRecipe(id, tenant)
	if err != nil {
		return respondError(c, log, err, "recipe")
	}
	return c.JSON(http.StatusOK, recipe)
}

// Update handles recipe updates and recomputes the cost cache
func (h *RecipeHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipe id"})
	}

	var req RecipeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if msg := validateRecipeRequest(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	recipe, err := h.recipes.GetRecipe(id, tenant)
	if err != nil {
		return respondError(c, log, err, "recipe")
	}

	recipe.Name = req.Name
	if req.Portions >= 1 {
		recipe.Portions = req.Portions
	}
	recipe.SalePrice = req.SalePrice
	recipe.Components = req.Components
	if req.IsActive != nil {
		recipe.IsActive = *req.IsActive
	}
	if err := h.recipes.Save(recipe); err != nil {
		return respondError(c, log, err, "recipe")
	}

	updated, breakdown, err := h.engine.CalculateForRecipe(id, tenant)
	if err != nil {
		return respondError(c, log, err, "recipe")
	}
	h.runCostAlerts(c, tenant, updated, breakdown)

	return c.JSON(http.StatusOK, echo.Map{"recipe": updated, "breakdown": breakdown})
}

// Delete handles soft-deleting a recipe
func (h *RecipeHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipe id"})
	}

	if err := h.recipes.SoftDelete(id, tenant); err != nil {
		return respondError(c, log, err, "recipe")
	}
	log.Info("Recipe deleted", zap.Uint("recipe_id", id), zap.Uint("tenant_id", tenant))
	return c.JSON(http.StatusOK, echo.Map{"message": "recipe deleted"})
}

// CalculateCost recomputes one recipe's cost breakdown on demand
func (h *RecipeHandler) CalculateCost(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipe id"})
	}

	recipe, breakdown, err := h.engine.CalculateForRecipe(id, tenant)
	if err != nil {
		return respondError(c, log, err, "recipe")
	}
	h.runCostAlerts(c, tenant, recipe, breakdown)

	return c.JSON(http.StatusOK, echo.Map{"recipe": recipe, "breakdown": breakdown})
}

// RecalculateByIngredient runs the cascade for one ingredient on demand
func (h *RecipeHandler) RecalculateByIngredient(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ingredient id"})
	}

	defer prometheus.TrackRecalculation("manual")(time.Now())
	result, err := h.orchestrator.RecalculateByIngredient(id, tenant)
	if err != nil {
		return respondError(c, log, err, "recalculation")
	}
	prometheus.RecipesRecalculated.Add(float64(result.UpdatedCount))

	return c.JSON(http.StatusOK, result)
}

func (h *RecipeHandler) runCostAlerts(c echo.Context, tenant uint, recipe *model.Recipe, breakdown *costing.CostBreakdown) {
	log := logger.FromContext(c)
	alerts, err := h.alerts.CheckRecipeCost(recipe.ID, tenant, breakdown, recipe.Name)
	if err != nil {
		log.Warn("Recipe cost alert check failed", zap.Uint("recipe_id", recipe.ID), zap.Error(err))
		return
	}
	for _, alert := range alerts {
		prometheus.RecordAlertCreated(alert.Type, alert.Severity)
	}
}

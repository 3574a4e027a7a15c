// Package alerting derives and tracks threshold-based alerts as a small
// state machine over the alerts table.
package alerting

import (
	"fmt"
	"time"

	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"go.uber.org/zap"
)

// Severity tier boundaries, fixed by product definition
const (
	criticalMarginPct        = 50 // margin below this is critical
	criticalPriceIncreasePct = 20 // price jump at or above this is critical
)

// AlertStore is the persistence surface of the state machine.
type AlertStore interface {
	// FindActive returns the single active alert for
	// (tenant, entity type, entity id, alert type), or nil when none.
	FindActive(tenantID uint, entityType string, entityID uint, alertType string) (*model.Alert, error)
	Create(alert *model.Alert) error
	// UpdateStatus persists status and transition timestamps.
	UpdateStatus(alert *model.Alert) error
	Get(alertID, tenantID uint) (*model.Alert, error)
}

// Thresholds are the breach limits, percentages throughout.
type Thresholds struct {
	MinMarginPct     float64
	MaxFoodCostPct   float64
	PriceIncreasePct float64
}

// DefaultThresholds returns the product defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinMarginPct: 60, MaxFoodCostPct: 35, PriceIncreasePct: 10}
}

// Machine evaluates metric thresholds and walks alerts through
// active -> acknowledged -> resolved.
type Machine struct {
	store      AlertStore
	thresholds Thresholds
	log        *zap.Logger
}

// NewMachine creates an alert state machine.
func NewMachine(store AlertStore, thresholds Thresholds, log *zap.Logger) *Machine {
	return &Machine{store: store, thresholds: thresholds, log: log}
}

// CheckLowStock ensures a single active low-stock alert while stock sits
// below the minimum, and auto-resolves it once stock recovers. Returns
// the active alert on breach, nil otherwise.
func (m *Machine) CheckLowStock(ingredientID, tenantID uint, name string, currentStock, minStock float64) (*model.Alert, error) {
	if currentStock < minStock {
		severity := model.SeverityWarning
		if currentStock <= 0 {
			severity = model.SeverityCritical
		}
		return m.ensureActive(&model.Alert{
			TenantID:   tenantID,
			Type:       model.AlertLowStock,
			Severity:   severity,
			EntityType: model.EntityIngredient,
			EntityID:   ingredientID,
			Title:      fmt.Sprintf("Low stock: %s", name),
			Message:    fmt.Sprintf("%s stock is at %.2f, below the minimum of %.2f", name, currentStock, minStock),
			Payload: model.AlertPayload{
				"current_stock": currentStock,
				"min_stock":     minStock,
			},
		})
	}
	return nil, m.resolveActive(tenantID, model.EntityIngredient, ingredientID, model.AlertLowStock)
}

// CheckRecipeCost evaluates the margin and food-cost thresholds for a
// freshly computed breakdown. Returns the alerts active after the check.
func (m *Machine) CheckRecipeCost(recipeID, tenantID uint, breakdown *costing.CostBreakdown, recipeName string) ([]*model.Alert, error) {
	alerts := make([]*model.Alert, 0, 2)

	if breakdown.MarginPct < m.thresholds.MinMarginPct {
		severity := model.SeverityWarning
		if breakdown.MarginPct < criticalMarginPct {
			severity = model.SeverityCritical
		}
		alert, err := m.ensureActive(&model.Alert{
			TenantID:   tenantID,
			Type:       model.AlertLowMargin,
			Severity:   severity,
			EntityType: model.EntityRecipe,
			EntityID:   recipeID,
			Title:      fmt.Sprintf("Low margin: %s", recipeName),
			Message:    fmt.Sprintf("%s margin is %.1f%%, below the %.1f%% threshold", recipeName, breakdown.MarginPct, m.thresholds.MinMarginPct),
			Payload: model.AlertPayload{
				"margin_pct": breakdown.MarginPct,
				"threshold":  m.thresholds.MinMarginPct,
			},
		})
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	} else {
		if err := m.resolveActive(tenantID, model.EntityRecipe, recipeID, model.AlertLowMargin); err != nil {
			return nil, err
		}
	}

	if breakdown.FoodCostPct > m.thresholds.MaxFoodCostPct {
		alert, err := m.ensureActive(&model.Alert{
			TenantID:   tenantID,
			Type:       model.AlertHighFoodCost,
			Severity:   model.SeverityWarning,
			EntityType: model.EntityRecipe,
			EntityID:   recipeID,
			Title:      fmt.Sprintf("High food cost: %s", recipeName),
			Message:    fmt.Sprintf("%s food cost is %.1f%%, above the %.1f%% threshold", recipeName, breakdown.FoodCostPct, m.thresholds.MaxFoodCostPct),
			Payload: model.AlertPayload{
				"food_cost_pct": breakdown.FoodCostPct,
				"threshold":     m.thresholds.MaxFoodCostPct,
			},
		})
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	} else {
		if err := m.resolveActive(tenantID, model.EntityRecipe, recipeID, model.AlertHighFoodCost); err != nil {
			return nil, err
		}
	}

	return alerts, nil
}

// CheckPriceIncrease fires on explicit price-change events only. Every
// qualifying increase creates a new alert; there is no dedup and no
// auto-resolution for this type.
func (m *Machine) CheckPriceIncrease(ingredientID, tenantID uint, name string, oldPrice, newPrice float64) (*model.Alert, error) {
	if oldPrice <= 0 {
		return nil, nil
	}
	increasePct := (newPrice - oldPrice) / oldPrice * 100
	if increasePct < m.thresholds.PriceIncreasePct {
		return nil, nil
	}

	severity := model.SeverityWarning
	if increasePct >= criticalPriceIncreasePct {
		severity = model.SeverityCritical
	}
	alert := &model.Alert{
		TenantID:   tenantID,
		Type:       model.AlertPriceIncrease,
		Severity:   severity,
		Status:     model.StatusActive,
		EntityType: model.EntityIngredient,
		EntityID:   ingredientID,
		Title:      fmt.Sprintf("Price increase: %s", name),
		Message:    fmt.Sprintf("%s price went from %.2f to %.2f (+%.1f%%)", name, oldPrice, newPrice, increasePct),
		Payload: model.AlertPayload{
			"old_price":    oldPrice,
			"new_price":    newPrice,
			"increase_pct": increasePct,
		},
	}
	if err := m.store.Create(alert); err != nil {
		return nil, err
	}
	m.log.Info("Price increase alert created",
		zap.Uint("ingredient_id", ingredientID),
		zap.Uint("tenant_id", tenantID),
		zap.Float64("increase_pct", increasePct),
		zap.String("severity", severity))
	return alert, nil
}

// Acknowledge moves an active alert to acknowledged.
func (m *Machine) Acknowledge(alertID, tenantID uint) (*model.Alert, error) {
	alert, err := m.store.Get(alertID, tenantID)
	if err != nil {
		return nil, err
	}
	if alert.Status != model.StatusActive {
		return nil, fmt.Errorf("%w: cannot acknowledge alert in status %s", model.ErrValidation, alert.Status)
	}
	now := time.Now()
	alert.Status = model.StatusAcknowledged
	alert.AcknowledgedAt = &now
	if err := m.store.UpdateStatus(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve moves an active or acknowledged alert to resolved. Resolved is
// terminal.
func (m *Machine) Resolve(alertID, tenantID uint) (*model.Alert, error) {
	alert, err := m.store.Get(alertID, tenantID)
	if err != nil {
		return nil, err
	}
	if alert.Status == model.StatusResolved {
		return nil, fmt.Errorf("%w: alert is already resolved", model.ErrValidation)
	}
	now := time.Now()
	alert.Status = model.StatusResolved
	alert.ResolvedAt = &now
	if err := m.store.UpdateStatus(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ensureActive returns the existing active alert for the candidate's
// (entity, type), or creates the candidate. Severity of an existing
// alert is left as created, even when the metric has worsened since.
func (m *Machine) ensureActive(candidate *model.Alert) (*model.Alert, error) {
	existing, err := m.store.FindActive(candidate.TenantID, candidate.EntityType, candidate.EntityID, candidate.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	candidate.Status = model.StatusActive
	if err := m.store.Create(candidate); err != nil {
		return nil, err
	}
	m.log.Info("Alert created",
		zap.String("type", candidate.Type),
		zap.String("severity", candidate.Severity),
		zap.String("entity_type", candidate.EntityType),
		zap.Uint("entity_id", candidate.EntityID),
		zap.Uint("tenant_id", candidate.TenantID))
	return candidate, nil
}

func (m *Machine) resolveActive(tenantID uint, entityType string, entityID uint, alertType string) error {
	existing, err := m.store.FindActive(tenantID, entityType, entityID, alertType)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	now := time.Now()
	existing.Status = model.StatusResolved
	existing.ResolvedAt = &now
	if err := m.store.UpdateStatus(existing); err != nil {
		return err
	}
	m.log.Info("Alert auto-resolved",
		zap.String("type", alertType),
		zap.Uint("entity_id", entityID),
		zap.Uint("tenant_id", tenantID))
	return nil
}

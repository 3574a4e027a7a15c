package alerting

import (
	"testing"

	"github.com/klaker79/lacaleta-api/internal/costing"
	"github.com/klaker79/lacaleta-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAlertStore struct {
	alerts []*model.Alert
	nextID uint
}

func (f *fakeAlertStore) FindActive(tenantID uint, entityType string, entityID uint, alertType string) (*model.Alert, error) {
	for _, alert := range f.alerts {
		if alert.TenantID == tenantID &&
			alert.EntityType == entityType &&
			alert.EntityID == entityID &&
			alert.Type == alertType &&
			alert.Status == model.StatusActive {
			return alert, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertStore) Create(alert *model.Alert) error {
	f.nextID++
	alert.ID = f.nextID
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertStore) UpdateStatus(alert *model.Alert) error {
	return nil
}

func (f *fakeAlertStore) Get(alertID, tenantID uint) (*model.Alert, error) {
	for _, alert := range f.alerts {
		if alert.ID == alertID && alert.TenantID == tenantID {
			return alert, nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeAlertStore) countByTypeAndStatus(alertType, status string) int {
	count := 0
	for _, alert := range f.alerts {
		if alert.Type == alertType && alert.Status == status {
			count++
		}
	}
	return count
}

func newTestMachine() (*Machine, *fakeAlertStore) {
	store := &fakeAlertStore{}
	return NewMachine(store, DefaultThresholds(), zap.NewNop()), store
}

func TestCheckLowStock_CreateAndResolve(t *testing.T) {
	machine, store := newTestMachine()

	alert, err := machine.CheckLowStock(1, 1, "Tomatoes", 2, 5)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.AlertLowStock, alert.Type)
	assert.Equal(t, model.SeverityWarning, alert.Severity)
	assert.Equal(t, model.StatusActive, alert.Status)

	// a second breach check is idempotent
	again, err := machine.CheckLowStock(1, 1, "Tomatoes", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, alert.ID, again.ID)
	assert.Equal(t, 1, store.countByTypeAndStatus(model.AlertLowStock, model.StatusActive))

	// stock recovered: auto-resolve
	resolved, err := machine.CheckLowStock(1, 1, "Tomatoes", 8, 5)
	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Zero(t, store.countByTypeAndStatus(model.AlertLowStock, model.StatusActive))
	assert.Equal(t, 1, store.countByTypeAndStatus(model.AlertLowStock, model.StatusResolved))
}

func TestCheckLowStock_ZeroStockIsCritical(t *testing.T) {
	machine, _ := newTestMachine()

	alert, err := machine.CheckLowStock(1, 1, "Saffron", 0, 3)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, model.SeverityCritical, alert.Severity)
}

func TestCheckRecipeCost_SeverityFrozenWhileActive(t *testing.T) {
	machine, store := newTestMachine()

	// margin 55: below the 60 threshold but above 50, warning
	first, err := machine.CheckRecipeCost(10, 1, &costing.CostBreakdown{MarginPct: 55, FoodCostPct: 30}, "Paella")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, model.SeverityWarning, first[0].Severity)

	// margin worsens to 45: no second alert, severity stays warning
	second, err := machine.CheckRecipeCost(10, 1, &costing.CostBreakdown{MarginPct: 45, FoodCostPct: 30}, "Paella")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, model.SeverityWarning, second[0].Severity)
	assert.Equal(t, 1, store.countByTypeAndStatus(model.AlertLowMargin, model.StatusActive))
}

func TestCheckRecipeCost_AutoResolvesOnRecovery(t *testing.T) {
	machine, store := newTestMachine()

	_, err := machine.CheckRecipeCost(10, 1, &costing.CostBreakdown{MarginPct: 40, FoodCostPct: 50}, "Paella")
	require.NoError(t, err)
	assert.Equal(t, 1, store.countByTypeAndStatus(model.AlertLowMargin, model.StatusActive))
	assert.Equal(t, 1, store.countByTypeAndStatus(model.AlertHighFoodCost, model.StatusActive))

	alerts, err := machine.CheckRecipeCost(10, 1, &costing.CostBreakdown{MarginPct: 70, FoodCostPct: 30}, "Paella")
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Zero(t, store.countByTypeAndStatus(model.AlertLowMargin, model.StatusActive))
	assert.Zero(t, store.countByTypeAndStatus(model.AlertHighFoodCost, model.StatusActive))
}

func TestCheckRecipeCost_CriticalBelowFifty(t *testing.T) {
	machine, _ := newTestMachine()

	alerts, err := machine.CheckRecipeCost(10, 1, &costing.CostBreakdown{MarginPct: 49.9, FoodCostPct: 20}, "Paella")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
}

func TestCheckPriceIncrease_NoDedup(t *testing.T) {
	machine, store := newTestMachine()

	first, err := machine.CheckPriceIncrease(1, 1, "Olive oil", 10, 11.5)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, model.SeverityWarning, first.Severity)

	// every qualifying change produces a fresh alert
	second, err := machine.CheckPriceIncrease(1, 1, "Olive oil", 11.5, 14)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, model.SeverityCritical, second.Severity) // +21.7%
	assert.Equal(t, 2, store.countByTypeAndStatus(model.AlertPriceIncrease, model.StatusActive))
}

func TestCheckPriceIncrease_BelowThresholdOrInvalidBase(t *testing.T) {
	machine, _ := newTestMachine()

	alert, err := machine.CheckPriceIncrease(1, 1, "Olive oil", 10, 10.5)
	require.NoError(t, err)
	assert.Nil(t, alert)

	alert, err = machine.CheckPriceIncrease(1, 1, "Olive oil", 0, 5)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestTransitions(t *testing.T) {
	machine, _ := newTestMachine()

	created, err := machine.CheckLowStock(1, 1, "Tomatoes", 0, 5)
	require.NoError(t, err)

	acked, err := machine.Acknowledge(created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAcknowledged, acked.Status)
	assert.NotNil(t, acked.AcknowledgedAt)

	// acknowledge twice is rejected
	_, err = machine.Acknowledge(created.ID, 1)
	assert.ErrorIs(t, err, model.ErrValidation)

	resolved, err := machine.Resolve(created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	// resolved is terminal
	_, err = machine.Resolve(created.ID, 1)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = machine.Acknowledge(created.ID, 1)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTransitions_WrongTenant(t *testing.T) {
	machine, _ := newTestMachine()

	created, err := machine.CheckLowStock(1, 1, "Tomatoes", 0, 5)
	require.NoError(t, err)

	_, err = machine.Acknowledge(created.ID, 2)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

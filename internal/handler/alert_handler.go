package handler

import (
	"net/http"

	"github.com/klaker79/lacaleta-api/internal/alerting"
	"github.com/klaker79/lacaleta-api/internal/storage"
	"github.com/klaker79/lacaleta-api/pkg/logger"
	"github.com/klaker79/lacaleta-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AlertHandler exposes alert listing and the manual state transitions
type AlertHandler struct {
	alerts  *storage.AlertStore
	machine *alerting.Machine
}

// NewAlertHandler wires the alert handler with its services
func NewAlertHandler(alerts *storage.AlertStore, machine *alerting.Machine) *AlertHandler {
	return &AlertHandler{alerts: alerts, machine: machine}
}

// List handles retrieving the tenant's alerts with optional filters
func (h *AlertHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}

	alerts, err := h.alerts.List(tenant, c.QueryParam("status"), c.QueryParam("type"))
	if err != nil {
		return respondError(c, log, err, "alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// Acknowledge moves an active alert to acknowledged
func (h *AlertHandler) Acknowledge(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid alert id"})
	}

	alert, err := h.machine.Acknowledge(id, tenant)
	if err != nil {
		return respondError(c, log, err, "alert")
	}
	log.Info("Alert acknowledged", zap.Uint("alert_id", id), zap.Uint("tenant_id", tenant))
	return c.JSON(http.StatusOK, alert)
}

// Resolve moves an active or acknowledged alert to resolved
func (h *AlertHandler) Resolve(c echo.Context) error {
	log := logger.FromContext(c)
	tenant, ok := tenantID(c)
	if !ok {
		return missingTenant(c)
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid alert id"})
	}

	alert, err := h.machine.Resolve(id, tenant)
	if err != nil {
		return respondError(c, log, err, "alert")
	}
	prometheus.RecordAlertResolved(alert.Type)
	log.Info("Alert resolved", zap.Uint("alert_id", id), zap.Uint("tenant_id", tenant))
	return c.JSON(http.StatusOK, alert)
}

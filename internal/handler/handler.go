// Package handler exposes the core operations over HTTP. Handlers stay
// thin: tenant scoping, binding, validation and error mapping; all
// domain behavior lives in the service packages.
package handler

import (
	"errors"
	"net/http"

	"github.com/klaker79/lacaleta-api/internal/model"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP statuses the way the rest
// of the API reports failures.
func respondError(c echo.Context, log *zap.Logger, err error, context string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": context + " not found"})
	case errors.Is(err, model.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		log.Error("Unexpected error", zap.String("context", context), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// tenantID pulls the tenant from the auth middleware context.
func tenantID(c echo.Context) (uint, bool) {
	id, ok := c.Get("tenant_id").(uint)
	return id, ok
}

func missingTenant(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context is required"})
}

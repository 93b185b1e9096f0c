package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is the plain liveness check used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports on the service's dependencies.
type HealthHandler struct {
	DB Pinger
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func (h *HealthHandler) ping(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	return h.DB.PingContext(ctx)
}

// Check handles GET /health.
func (h *HealthHandler) Check(c echo.Context) error {
	if err := h.ping(c); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "healthy", "database": "connected", "timestamp": now()})
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c echo.Context) error {
	if err := h.ping(c); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not ready", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready", "timestamp": now()})
}

// Alive handles GET /health/alive.
func (h *HealthHandler) Alive(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "alive", "timestamp": now()})
}

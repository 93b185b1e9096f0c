package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-service/internal/handler"
	"github.com/iliyamo/booking-service/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health endpoints.
func RegisterRoutes(e *echo.Echo, hh *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/health", hh.Check)
	e.GET("/health/ready", hh.Ready)
	e.GET("/health/alive", hh.Alive)
}

// RegisterBookings registers the booking API under /v1.  Every route
// requires a valid access token; extra middleware (rate limiting) runs
// after authentication so limits can be keyed by user.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	if len(extra) > 0 {
		g.Use(extra...)
	}

	g.POST("/bookings", h.Create)
	g.GET("/bookings", h.List)
	g.GET("/bookings/next", h.Next)
	g.GET("/bookings/:id", h.Get)
	g.PUT("/bookings/:id/cancel", h.Cancel)
	g.DELETE("/bookings/:id", h.Delete)

	// Paths used by the first generation of clients.
	g.GET("/reservas/proximas", h.Next)
	g.PUT("/reservas/:id/cancelar", h.Cancel)
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-service/internal/middleware"
	"github.com/iliyamo/booking-service/internal/model"
)

// Bookings is the booking API the handlers call.  *service.BookingService
// implements it.
type Bookings interface {
	CreateBooking(ctx context.Context, callerExternalID, isoDate, serviceName string) (model.BookingView, error)
	CancelBooking(ctx context.Context, bookingID, callerLocalUserID string) (model.BookingView, error)
	DeleteBooking(ctx context.Context, bookingID, callerLocalUserID string) (bool, error)
	GetBookings(ctx context.Context, callerLocalUserID string) ([]model.BookingView, error)
	GetNextBookings(ctx context.Context, callerLocalUserID string, limit int) ([]model.BookingView, error)
	GetBooking(ctx context.Context, bookingID, callerLocalUserID string) (model.BookingView, error)
	CallerLocalID(ctx context.Context, externalID string) (string, error)
}

// BookingHandler serves the /v1/bookings endpoints.  It assumes JWTAuth
// ran first and put the caller's directory identity in the context.
type BookingHandler struct {
	svc Bookings
}

// NewBookingHandler panics when svc is nil.
func NewBookingHandler(svc Bookings) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
	Date        string `json:"date"`
	ServiceName string `json:"service_name"`
	// Fecha and Servicio are the field names used by older clients.
	Fecha    string `json:"fecha"`
	Servicio string `json:"servicio"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, svcName := body.Date, body.ServiceName
	if date == "" {
		date = body.Fecha
	}
	if svcName == "" {
		svcName = body.Servicio
	}

	view, err := h.svc.CreateBooking(c.Request().Context(), middleware.CurrentUserID(c), date, svcName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// List handles GET /v1/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	caller, err := h.caller(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.GetBookings(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Next handles GET /v1/bookings/next?limit=n.
func (h *BookingHandler) Next(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	caller, err := h.caller(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.GetNextBookings(c.Request().Context(), caller, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	caller, err := h.caller(c)
	if err != nil {
		return writeError(c, err)
	}
	view, err := h.svc.GetBooking(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Cancel handles PUT /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	caller, err := h.caller(c)
	if err != nil {
		return writeError(c, err)
	}
	view, err := h.svc.CancelBooking(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	caller, err := h.caller(c)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.svc.DeleteBooking(c.Request().Context(), c.Param("id"), caller); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// caller resolves the authenticated identity to a local user id.  An
// identity that never booked resolves to "".
func (h *BookingHandler) caller(c echo.Context) (string, error) {
	return h.svc.CallerLocalID(c.Request().Context(), middleware.CurrentUserID(c))
}

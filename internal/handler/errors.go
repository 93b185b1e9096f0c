package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/service"
)

// statusFor maps a service error to the HTTP status returned to clients.
func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindInvalidInput:
		if errors.Is(err, repository.ErrAlreadyCancelled) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case service.KindNotFoundUpstream:
		return http.StatusNotFound
	case service.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case service.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}.  Internal failures hide their
// cause from the client.
func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	msg := "internal error"
	var se *service.Error
	if errors.As(err, &se) && code != http.StatusInternalServerError {
		msg = se.Msg
	}
	return c.JSON(code, echo.Map{"error": msg})
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hirfa/internal/order"
)

var kindStatus = map[order.Kind]int{
	order.KindInvalidTransition:       http.StatusConflict,
	order.KindUnauthorized:            http.StatusForbidden,
	order.KindSubscriptionRequired:    http.StatusPaymentRequired,
	order.KindAlreadyEngaged:          http.StatusConflict,
	order.KindAlreadyRated:            http.StatusConflict,
	order.KindNotFound:                http.StatusNotFound,
	order.KindCollaboratorUnavailable: http.StatusServiceUnavailable,
	order.KindValidation:              http.StatusBadRequest,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind order.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Fail writes err as {"error", "kind"}. Collaborator failures never leak their cause.
func Fail(c echo.Context, err error) error {
	kind := order.KindOf(err)
	msg := err.Error()
	if kind == order.KindCollaboratorUnavailable {
		msg = "service temporarily unavailable, try again"
	}
	return c.JSON(StatusFor(kind), echo.Map{"error": msg, "kind": kind})
}

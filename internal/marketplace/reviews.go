package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
)

// RateOrder lets the client rate a completed order once
func (h *Handler) RateOrder(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req order.RateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	o, err := h.engine.Rate(c.Request().Context(), id, actor, req)
	if err != nil {
		return middleware.Fail(c, err)
	}
	h.log.Info("order rated", zap.String("order_id", o.ID), zap.String("craftsman_id", o.CraftsmanID), zap.Int("rating", req.Rating))
	return c.JSON(http.StatusOK, order.View{Order: *o})
}

// CraftsmanReputation returns the aggregate rating of a craftsman
func (h *Handler) CraftsmanReputation(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	p, err := h.craftsman(c, id)
	if err != nil {
		return middleware.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"craftsman_id":    p.ID,
		"rating_average":  p.RatingAverage,
		"completed_count": p.CompletedCount,
	})
}

package marketplace

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
)

// =========================
// CreateOrder - client posts a new request
// =========================
func (h *Handler) CreateOrder(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req order.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	o, err := h.engine.Create(c.Request().Context(), actor, req)
	if err != nil {
		return middleware.Fail(c, err)
	}
	return c.JSON(http.StatusCreated, order.View{Order: *o})
}

// =========================
// ListOrders - the caller's orders, newest first
// GET /orders?status=pending,in_progress&open=true
// =========================
func (h *Handler) ListOrders(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var f order.Filter
	if raw := c.QueryParam("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := order.ParseStatus(strings.TrimSpace(part))
			if !ok {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + part, "kind": order.KindValidation})
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	f.IncludeOpen = c.QueryParam("open") == "true"

	views, err := h.engine.List(c.Request().Context(), actor, f)
	if err != nil {
		return middleware.Fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": views})
}

// =========================
// GetOrder - one order through the disclosure gate
// =========================
func (h *Handler) GetOrder(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	v, err := h.engine.Get(c.Request().Context(), id, actor)
	if err != nil {
		return middleware.Fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type command func(ctx context.Context, orderID string, a order.Actor) (*order.Order, error)

// run executes one lifecycle command and answers with the caller's view of the result.
func (h *Handler) run(c echo.Context, cmd command) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	ctx := c.Request().Context()
	o, err := cmd(ctx, id, actor)
	if err != nil {
		return middleware.Fail(c, err)
	}
	v, err := h.engine.Get(ctx, id, actor)
	if err != nil {
		// committed already; fall back to the strictest view
		h.log.Warn("reload after command", zap.String("order_id", id), zap.Error(err))
		if v, err = order.Disclose(o, actor, false); err != nil {
			return c.JSON(http.StatusOK, echo.Map{"id": o.ID, "status": o.Status})
		}
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) EngageOrder(c echo.Context) error { return h.run(c, h.engine.Engage) }

func (h *Handler) AcceptOrder(c echo.Context) error { return h.run(c, h.engine.Accept) }

func (h *Handler) ApproveStart(c echo.Context) error { return h.run(c, h.engine.ApproveStart) }

func (h *Handler) StartOrder(c echo.Context) error { return h.run(c, h.engine.Start) }

func (h *Handler) CompleteOrder(c echo.Context) error { return h.run(c, h.engine.Complete) }

// RejectOrder - either party declines a discussion with an optional reason
func (h *Handler) RejectOrder(c echo.Context) error {
	var body reasonRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	return h.run(c, func(ctx context.Context, id string, a order.Actor) (*order.Order, error) {
		return h.engine.Reject(ctx, id, a, body.Reason)
	})
}

// CancelOrder - either party aborts a live order
func (h *Handler) CancelOrder(c echo.Context) error {
	var body reasonRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	return h.run(c, func(ctx context.Context, id string, a order.Actor) (*order.Order, error) {
		return h.engine.Cancel(ctx, id, a, body.Reason)
	})
}

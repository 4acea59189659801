package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

// ListPlans returns the purchasable plans
func (h *Handler) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"plans": h.plans.Plans()})
}

// Subscribe activates a plan for the calling craftsman. POST /subscriptions {"plan": "monthly"}
func (h *Handler) Subscribe(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Plan string `json:"plan"`
	}
	if err := c.Bind(&body); err != nil || body.Plan == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan is required", "kind": order.KindValidation})
	}
	plan, ok := h.plans.Plan(body.Plan)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan", "kind": order.KindValidation})
	}
	sub, err := h.subs.SubscribePlan(c.Request().Context(), actor.ID, plan)
	if err != nil {
		return middleware.Fail(c, subscriptionError(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{"subscription": sub, "entitled": true})
}

// MySubscription returns the stored record plus the entitlement derived from it now.
func (h *Handler) MySubscription(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	sub, entitled, err := h.subs.Current(c.Request().Context(), actor.ID)
	if err != nil {
		return middleware.Fail(c, subscriptionError(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"subscription": sub, "entitled": entitled})
}

func (h *Handler) CancelSubscription(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	sub, err := h.subs.Cancel(c.Request().Context(), actor.ID)
	if err != nil {
		return middleware.Fail(c, subscriptionError(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"subscription": sub, "entitled": false})
}

func subscriptionError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		return errors.Wrap(order.ErrNotFound, err.Error())
	case errors.Is(err, subscription.ErrInvalidPlan), errors.Is(err, subscription.ErrInvalidPrice):
		return errors.Wrap(order.ErrValidation, err.Error())
	case errors.Is(err, subscription.ErrSuperseded):
		return errors.Wrap(order.ErrInvalidTransition, err.Error())
	}
	return err
}

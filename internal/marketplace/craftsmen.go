package marketplace

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
)

func (h *Handler) craftsman(c echo.Context, id string) (order.Profile, error) {
	p, err := h.dir.Profile(c.Request().Context(), id)
	if err != nil {
		return order.Profile{}, err
	}
	if p.Role != order.RoleCraftsman {
		return order.Profile{}, errors.Wrapf(order.ErrNotFound, "craftsman %s", id)
	}
	return p, nil
}

// phone numbers are only shown to clients
func visible(p order.Profile, viewer order.Actor) order.Profile {
	if viewer.Role != order.RoleClient {
		p.Phone = ""
	}
	return p
}

// GET /craftsmen?specialty=سباكة&location=الرياض
func (h *Handler) SearchCraftsmen(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	q := order.SearchQuery{
		Specialty: strings.TrimSpace(c.QueryParam("specialty")),
		Location:  strings.TrimSpace(c.QueryParam("location")),
	}
	if q.Specialty != "" && !order.ValidCategory(q.Specialty) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown specialty", "kind": order.KindValidation})
	}
	found, err := h.dir.SearchCraftsmen(c.Request().Context(), q)
	if err != nil {
		return middleware.Fail(c, err)
	}
	out := make([]order.Profile, 0, len(found))
	for _, p := range found {
		out = append(out, visible(p, actor))
	}
	return c.JSON(http.StatusOK, echo.Map{"craftsmen": out})
}

// GET /craftsmen/:id
func (h *Handler) CraftsmanProfile(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	p, err := h.craftsman(c, id)
	if err != nil {
		return middleware.Fail(c, err)
	}
	return c.JSON(http.StatusOK, visible(p, actor))
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// ActorResolver turns a bearer token into an authenticated actor.
type ActorResolver interface {
	ResolveActor(token string) (order.Actor, error)
}

const actorKey = "actor"

// JWT authenticates the request and stores user_id, role and the actor on the context.
func JWT(resolver ActorResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or invalid Authorization header"})
			}
			actor, err := resolver.ResolveActor(strings.TrimSpace(header[len(prefix):]))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set("user_id", actor.ID)
			c.Set("role", string(actor.Role))
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by JWT.
func ActorFrom(c echo.Context) (order.Actor, bool) {
	a, ok := c.Get(actorKey).(order.Actor)
	return a, ok && a.ID != ""
}

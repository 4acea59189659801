package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles(order.RoleCraftsman))
func RequireRoles(roles ...order.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return Fail(c, errors.Wrap(order.ErrUnauthorized, "role missing"))
			}

			for _, r := range roles {
				if role == string(r) {
					return next(c)
				}
			}
			return Fail(c, errors.Wrap(order.ErrUnauthorized, "access denied"))
		}
	}
}

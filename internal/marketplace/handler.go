package marketplace

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

// Handler serves the order, craftsman and subscription endpoints.
type Handler struct {
	engine *order.Engine
	dir    order.Directory
	subs   *subscription.Service
	plans  *subscription.Catalogue
	log    *zap.Logger
}

func NewHandler(engine *order.Engine, dir order.Directory, subs *subscription.Service, plans *subscription.Catalogue, log *zap.Logger) *Handler {
	return &Handler{engine: engine, dir: dir, subs: subs, plans: plans, log: log.Named("marketplace")}
}

// Register mounts every route on g; g must already be behind middleware.JWT.
func (h *Handler) Register(g *echo.Group) {
	craftsman := middleware.RequireRoles(order.RoleCraftsman)
	client := middleware.RequireRoles(order.RoleClient)

	g.POST("/orders", h.CreateOrder, client)
	g.GET("/orders", h.ListOrders)
	g.GET("/orders/:id", h.GetOrder)
	g.POST("/orders/:id/engage", h.EngageOrder, craftsman)
	g.POST("/orders/:id/accept", h.AcceptOrder, craftsman)
	g.POST("/orders/:id/reject", h.RejectOrder)
	g.POST("/orders/:id/approve-start", h.ApproveStart, client)
	g.POST("/orders/:id/start", h.StartOrder, craftsman)
	g.POST("/orders/:id/complete", h.CompleteOrder)
	g.POST("/orders/:id/rate", h.RateOrder, client)
	g.POST("/orders/:id/cancel", h.CancelOrder)

	g.GET("/craftsmen", h.SearchCraftsmen)
	g.GET("/craftsmen/:id", h.CraftsmanProfile)
	g.GET("/craftsmen/:id/reputation", h.CraftsmanReputation)

	g.GET("/subscriptions/plans", h.ListPlans)
	g.POST("/subscriptions", h.Subscribe, craftsman)
	g.GET("/subscriptions/me", h.MySubscription, craftsman)
	g.DELETE("/subscriptions/me", h.CancelSubscription, craftsman)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id format"})
}

// pathID reads and validates the :id parameter.
func pathID(c echo.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/config"
	"github.com/sudo-init-do/hirfa/internal/marketplace"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	mware "github.com/sudo-init-do/hirfa/internal/middleware"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/storage"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

type routerDeps struct {
	cfg      config.Config
	log      *zap.Logger
	backend  storage.Backend
	engine   *order.Engine
	subs     *subscription.Service
	plans    *subscription.Catalogue
	hub      *messaging.Hub
	clock    clock.Clock
	registry *prometheus.Registry
}

func newRouter(d routerDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				d.log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			d.log.Info("request", fields...)
			return nil
		},
	}))

	// Health and root routes
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "hirfa"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := d.backend.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	tokens := auth.NewTokens(d.cfg.JWTSecret, d.cfg.JWTTTL)
	authHandler := auth.NewHandler(d.backend, tokens, d.log)

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      20,
			ExpiresIn: 3 * time.Minute,
		}),
	}))
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWT(tokens))

	api.GET("/auth/me", authHandler.Me)

	marketplace.NewHandler(d.engine, d.backend, d.subs, d.plans, d.log).Register(api)

	msgs := messaging.NewHandler(messaging.NewService(d.backend, d.engine, d.backend, d.backend, d.hub, d.clock, d.log), d.hub)
	api.POST("/orders/:id/messages", msgs.SendMessage)
	api.GET("/orders/:id/messages", msgs.ListMessages)
	api.GET("/orders/:id/ws", msgs.OrderWS)
	api.GET("/messages/unread", msgs.UnreadCount)

	notes := alerts.NewHandler(d.backend)
	api.GET("/notifications", notes.ListNotifications)
	api.PATCH("/notifications/:id/read", notes.MarkNotificationRead)

	return e
}

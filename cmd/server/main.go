package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/config"
	"github.com/sudo-init-do/hirfa/internal/logger"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	"github.com/sudo-init-do/hirfa/internal/metrics"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/storage"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Service:     "hirfa-api",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeStore, err := storage.Open(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	defer closeStore()

	plans, err := subscription.LoadCatalogue(cfg.PlansFile)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.New(registry, metrics.Config{ServiceName: "hirfa", Environment: cfg.Environment})

	events, closeEvents, err := eventDispatcher(cfg, backend, log)
	if err != nil {
		return err
	}
	defer closeEvents()

	clk := clock.System{}
	hub := messaging.NewHub(log)
	engine := order.NewEngine(order.Params{
		Store:         backend,
		Subscriptions: backend,
		Directory:     backend,
		Events:        orderMetrics.Dispatcher(alerts.Fanout{hub, events}),
		Observer:      orderMetrics,
		Clock:         clk,
		Policy: order.Policy{
			Flow:         order.Flow(cfg.OrderFlow),
			CompletionBy: order.CompletionBy(cfg.OrderCompletionBy),
		},
		Logger: log,
	})
	log.Info("order policy", zap.String("flow", cfg.OrderFlow), zap.String("completion_by", cfg.OrderCompletionBy))

	e := newRouter(routerDeps{
		cfg:      cfg,
		log:      log,
		backend:  backend,
		engine:   engine,
		subs:     subscription.NewService(backend, clk, log),
		plans:    plans,
		hub:      hub,
		clock:    clk,
		registry: registry,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// eventDispatcher builds the notification side of event dispatch; the websocket hub is
// always added on top of it.
func eventDispatcher(cfg config.Config, backend storage.Backend, log *zap.Logger) (order.EventDispatcher, func(), error) {
	switch cfg.EventsBackend {
	case config.EventsAsynq:
		d := alerts.NewAsynqDispatcher(cfg.RedisAddr, log)
		return d, func() { _ = d.Close() }, nil
	case config.EventsAMQP:
		d, err := alerts.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { _ = d.Close() }, nil
	default:
		return alerts.NewNotifier(backend, log), func() {}, nil
	}
}

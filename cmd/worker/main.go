package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/config"
	"github.com/sudo-init-do/hirfa/internal/logger"
	"github.com/sudo-init-do/hirfa/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Service:     "hirfa-worker",
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

	backend, closeStore, err := storage.Open(ctx, cfg, false, log)
	if err != nil {
		return err
	}
	defer closeStore()
	notifier := alerts.NewNotifier(backend, log)

	g, gctx := errgroup.WithContext(ctx)
	switch cfg.EventsBackend {
	case config.EventsAsynq:
		p := alerts.NewProcessor(cfg.RedisAddr, notifier, log)
		if err := p.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			p.Shutdown()
			return nil
		})
	case config.EventsAMQP:
		consumer, err := alerts.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, notifier, log)
		if err != nil {
			return err
		}
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx) })
	default:
		log.Warn("EVENTS_BACKEND is inline; notifications are written by the API, nothing to consume",
			zap.String("events_backend", cfg.EventsBackend))
		return nil
	}
	log.Info("worker started", zap.String("events_backend", cfg.EventsBackend))
	return g.Wait()
}

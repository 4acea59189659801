package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Processor consumes order event tasks.
type Processor struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	notifier *Notifier
	log      *zap.Logger
}

func NewProcessor(redisAddr string, notifier *Notifier, log *zap.Logger) *Processor {
	log = log.Named("alerts.worker")
	p := &Processor{
		server: asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				QueueEvents: 10,
				QueueAlerts: 5,
			},
			Logger: zapAsynqLogger{log.Sugar()},
		}),
		mux:      asynq.NewServeMux(),
		notifier: notifier,
		log:      log,
	}
	p.mux.HandleFunc(TaskOrderEventPrefix, p.HandleOrderEvent)
	return p
}

// HandleOrderEvent decodes a task and stores the resulting notification.
func (p *Processor) HandleOrderEvent(ctx context.Context, t *asynq.Task) error {
	var payload OrderEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads never succeed on retry
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := p.notifier.Handle(ctx, payload.Event); err != nil {
		p.log.Error("order event failed", zap.String("task", t.Type()), zap.Error(err))
		return err
	}
	p.log.Info("order event processed", zap.String("task", t.Type()), zap.String("order_id", payload.Event.OrderID))
	return nil
}

// Start begins processing in the background; stop it with Shutdown.
func (p *Processor) Start() error {
	return p.server.Start(p.mux)
}

func (p *Processor) Shutdown() {
	p.server.Shutdown()
}

type zapAsynqLogger struct{ s *zap.SugaredLogger }

func (l zapAsynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }

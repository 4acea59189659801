package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// AsynqDispatcher enqueues every committed order event as an asynq task.
type AsynqDispatcher struct {
	client *asynq.Client
	log    *zap.Logger
}

func NewAsynqDispatcher(redisAddr string, log *zap.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		log:    log.Named("alerts.asynq"),
	}
}

func NewOrderEventTask(e order.Event) (*asynq.Task, error) {
	b, err := json.Marshal(OrderEventPayload{Event: e, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderEventPrefix+e.Type, b, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, e order.Event) error {
	task, err := NewOrderEventTask(e)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(QueueEvents))
	if err != nil {
		return err
	}
	d.log.Debug("event enqueued", zap.String("task", task.Type()), zap.String("task_id", info.ID))
	return nil
}

func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

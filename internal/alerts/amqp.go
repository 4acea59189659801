package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// AMQPDispatcher publishes order events to a durable topic exchange, routed by event type.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPDispatcher(url, exchange string, log *zap.Logger) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange, log: log.Named("alerts.amqp")}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, e order.Event) error {
	body, err := json.Marshal(OrderEventPayload{Event: e, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.ch.PublishWithContext(ctx, d.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ch.Close(); err != nil {
		d.log.Warn("close channel", zap.Error(err))
	}
	return d.conn.Close()
}

// AMQPConsumer drains a queue bound to the order exchange into the notifier.
type AMQPConsumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	notifier *Notifier
	log      *zap.Logger
}

func NewAMQPConsumer(url, exchange, queue string, notifier *Notifier, log *zap.Logger) (*AMQPConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(err error) (*AMQPConsumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fail(fmt.Errorf("set qos: %w", err))
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s: %w", exchange, err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare queue %s: %w", queue, err))
	}
	if err := ch.QueueBind(queue, "order.#", exchange, false, nil); err != nil {
		return fail(fmt.Errorf("bind queue %s: %w", queue, err))
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: queue, notifier: notifier, log: log.Named("alerts.amqp")}, nil
}

// Run consumes until ctx is done or the channel closes.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.log.Info("consuming", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var payload OrderEventPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.log.Error("drop malformed event", zap.String("message_id", msg.MessageId), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	if err := c.notifier.Handle(ctx, payload.Event); err != nil {
		c.log.Error("order event failed", zap.String("type", payload.Event.Type), zap.Error(err))
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
}

func (c *AMQPConsumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.log.Warn("close channel", zap.Error(err))
	}
	return c.conn.Close()
}

package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sudo-init-do/hirfa/internal/order"
)

type Config struct {
	ServiceName string
	Environment string
}

// OrderMetrics observes every engine command. Labels are bounded by the command and
// error-kind enums.
type OrderMetrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func New(registerer prometheus.Registerer, cfg Config) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hirfa"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &OrderMetrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hirfa_order_commands_total",
			Help:        "Order lifecycle commands by outcome.",
			ConstLabels: constLabels,
		}, []string{"command", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "hirfa_order_command_duration_seconds",
			Help:        "Order command latency including the store transaction.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"command"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "hirfa_order_events_dispatched_total",
			Help:        "Order events handed to the dispatcher.",
			ConstLabels: constLabels,
		}, []string{"type"}),
	}
	registerer.MustRegister(m.commands, m.duration, m.events)
	return m
}

func (m *OrderMetrics) ObserveCommand(cmd order.Command, kind order.Kind, elapsed time.Duration) {
	result := "ok"
	if kind != "" {
		result = string(kind)
	}
	m.commands.WithLabelValues(string(cmd), result).Inc()
	m.duration.WithLabelValues(string(cmd)).Observe(elapsed.Seconds())
}

type countingDispatcher struct {
	next   order.EventDispatcher
	events *prometheus.CounterVec
}

func (d countingDispatcher) Dispatch(ctx context.Context, e order.Event) error {
	d.events.WithLabelValues(e.Type).Inc()
	return d.next.Dispatch(ctx, e)
}

// Dispatcher counts every event handed to next.
func (m *OrderMetrics) Dispatcher(next order.EventDispatcher) order.EventDispatcher {
	return countingDispatcher{next: next, events: m.events}
}

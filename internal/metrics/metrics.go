package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_events_total",
		Help: "Total number of events accepted by the dispatch coordinator",
	}, []string{"event_type"})

	ActionExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_action_executions_total",
		Help: "Automation action executions by action kind and outcome",
	}, []string{"action", "outcome"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_delivery_attempts_total",
		Help: "Webhook delivery attempts by outcome",
	}, []string{"outcome"})

	DLQMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_dlq_messages_total",
		Help: "Total number of dispatch tasks sent to the DLQ",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_queue_depth",
		Help: "Current length of the dispatch task stream",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

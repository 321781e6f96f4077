package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration      *prometheus.HistogramVec
	RequestErrors        *prometheus.CounterVec
	CommandsExecuted     *prometheus.CounterVec
	SLASweepDuration     prometheus.Histogram
	SLATicketsProcessed  prometheus.Counter
	SLANotificationsSent *prometheus.CounterVec
	SLASweepFailures     prometheus.Counter
	WebhookDeliveries    *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total number of failed requests by error code",
		}, []string{"method", "route", "code"}),
		CommandsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_commands_executed_total",
			Help: "Total number of chat commands by command and outcome",
		}, []string{"command", "outcome"}),
		SLASweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Time taken by one SLA sweep",
			Buckets: prometheus.DefBuckets,
		}),
		SLATicketsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_tickets_processed_total",
			Help: "Total number of tickets inspected by SLA sweeps",
		}),
		SLANotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_notifications_sent_total",
			Help: "Total number of SLA notifications sent",
		}, []string{"level"}),
		SLASweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_sweep_ticket_failures_total",
			Help: "Total number of tickets a sweep failed to process",
		}),
		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of outbound notifications by channel and result",
		}, []string{"channel", "result"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest observes a completed request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(method, route, code).Inc()
}

// RecordCommand counts a chat command outcome.
func (m *Metrics) RecordCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.CommandsExecuted.WithLabelValues(command, outcome).Inc()
}

// RecordSweep observes one SLA sweep.
func (m *Metrics) RecordSweep(processed, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SLASweepDuration.Observe(duration.Seconds())
	m.SLATicketsProcessed.Add(float64(processed))
	m.SLASweepFailures.Add(float64(failed))
}

// RecordSLANotification counts a notification for level.
func (m *Metrics) RecordSLANotification(level string) {
	if m == nil {
		return
	}
	m.SLANotificationsSent.WithLabelValues(level).Inc()
}

// RecordDelivery counts an outbound notification attempt.
func (m *Metrics) RecordDelivery(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.WebhookDeliveries.WithLabelValues(channel, result).Inc()
}

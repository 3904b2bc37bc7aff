// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	remindersSent       *prometheus.CounterVec
	reminderFailures    *prometheus.CounterVec
	greetingGenerations *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memento_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memento_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		remindersSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memento_reminders_sent_total",
				Help: "Reminders delivered, by channel",
			},
			[]string{"channel"},
		),
		reminderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memento_reminder_failures_total",
				Help: "Reminder deliveries that failed, by channel",
			},
			[]string{"channel"},
		),
		greetingGenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memento_greeting_generations_total",
				Help: "Greeting generation attempts, by result",
			},
			[]string{"result"},
		),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.remindersSent, m.reminderFailures, m.greetingGenerations)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ReminderSent(channel string) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(channel).Inc()
}

func (m *Metrics) ReminderFailed(channel string) {
	if m == nil {
		return
	}
	m.reminderFailures.WithLabelValues(channel).Inc()
}

// GreetingGenerated records a generation attempt; result is "ok" or "error".
func (m *Metrics) GreetingGenerated(result string) {
	if m == nil {
		return
	}
	m.greetingGenerations.WithLabelValues(result).Inc()
}

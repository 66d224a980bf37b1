package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)

	ChatbotResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "chatbot",
			Name:      "resolutions_total",
			Help:      "Questions answered by the FAQ bot, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	ChatbotRepliesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "chatbot",
			Name:      "replies_discarded_total",
			Help:      "Pending bot replies dropped because the widget closed first",
		},
	)

	ActiveWidgets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "folio",
			Subsystem: "chatbot",
			Name:      "active_widgets",
			Help:      "Chat widgets currently held in memory",
		},
	)

	ContactSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact form submissions by status",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordResolution records one answered question.
func RecordResolution(topic, outcome string) {
	ChatbotResolutions.WithLabelValues(topic, outcome).Inc()
}

// RecordContact records a contact form submission.
func RecordContact(status string) {
	ContactSubmissions.WithLabelValues(status).Inc()
}

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the honeypot exports. All collectors
// live on a private registry so tests can build as many instances as
// they like without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	MessagesIngested  prometheus.Counter
	EntitiesExtracted *prometheus.CounterVec
	Escalations       prometheus.Counter
	ReportsDelivered  prometheus.Counter
	ReportsFailed     prometheus.Counter
	DialogueFallbacks prometheus.Counter
	DialogueLatency   prometheus.Histogram
}

// New builds and registers the honeypot's collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "decoy"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		MessagesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ingested_total",
			Help:      "Inbound counterparty messages ingested into the ledger",
		}),
		EntitiesExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_extracted_total",
			Help:      "Entities matched in inbound messages, before deduplication",
		}, []string{"kind"}),
		Escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Turns on which a session qualified for escalation",
		}),
		ReportsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_delivered_total",
			Help:      "Intelligence reports accepted by the collector",
		}),
		ReportsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_failed_total",
			Help:      "Intelligence report deliveries that failed and were dropped",
		}),
		DialogueFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_fallbacks_total",
			Help:      "Replies substituted with a canned fallback",
		}),
		DialogueLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialogue_latency_seconds",
			Help:      "Latency of dialogue service calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.MessagesIngested,
		m.EntitiesExtracted,
		m.Escalations,
		m.ReportsDelivered,
		m.ReportsFailed,
		m.DialogueFallbacks,
		m.DialogueLatency,
	)
	return m
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus instrumentation for the campaign
// delivery pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for campaign delivery.
type Metrics struct {
	MessagesSentTotal   *prometheus.CounterVec
	MessagesFailedTotal *prometheus.CounterVec
	CampaignsSentTotal  prometheus.Counter
	SendDurationSeconds prometheus.Histogram
	AudienceSize        prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engage_messages_sent_total",
				Help: "Total number of successfully delivered messages",
			},
			[]string{"campaign_type"},
		),
		MessagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engage_messages_failed_total",
				Help: "Total number of failed delivery attempts",
			},
			[]string{"campaign_type"},
		),
		CampaignsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engage_campaigns_sent_total",
				Help: "Total number of campaigns that completed a send",
			},
		),
		SendDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engage_send_duration_seconds",
				Help:    "Wall-clock duration of a full campaign send",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		AudienceSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engage_audience_size",
				Help:    "Resolved audience size per send",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.CampaignsSentTotal,
		m.SendDurationSeconds,
		m.AudienceSize,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

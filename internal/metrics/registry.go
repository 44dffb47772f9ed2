// Package metrics provides Prometheus metrics for the SCADA gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics for the service.
type Registry struct {
	// Read metrics
	ReadsTotal   *prometheus.CounterVec
	ReadErrors   *prometheus.CounterVec
	ReadDuration *prometheus.HistogramVec

	// Lifecycle metrics
	ConnectionState *prometheus.GaugeVec
	SessionsActive  prometheus.Gauge

	// Registry metrics
	ValuesStored prometheus.Gauge

	// MQTT metrics
	MQTTMessagesPublished prometheus.Counter
	MQTTMessagesFailed    prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	return &Registry{
		ReadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "polling",
			Name:      "reads_total",
			Help:      "Total number of tag read cycles",
		}, []string{"server_id", "status"}),
		ReadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "polling",
			Name:      "read_errors_total",
			Help:      "Total number of failed tag reads",
		}, []string{"server_id", "tag_id"}),
		ReadDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Subsystem: "polling",
			Name:      "read_duration_seconds",
			Help:      "Tag read duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"server_id"}),

		ConnectionState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "lifecycle",
			Name:      "connection_state",
			Help:      "Connection state per server (0=uninitialized through 5=stopped)",
		}, []string{"server_id"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "lifecycle",
			Name:      "sessions_active",
			Help:      "Number of established protocol sessions",
		}),

		ValuesStored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "registry",
			Name:      "values_stored",
			Help:      "Number of tags with a recorded latest value",
		}),

		MQTTMessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "mqtt",
			Name:      "messages_published_total",
			Help:      "Total number of MQTT messages published",
		}),
		MQTTMessagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "mqtt",
			Name:      "messages_failed_total",
			Help:      "Total number of failed MQTT publishes",
		}),
	}
}

// RecordReadSuccess records a successful tag read.
func (r *Registry) RecordReadSuccess(serverID string, duration float64) {
	r.ReadsTotal.WithLabelValues(serverID, "success").Inc()
	r.ReadDuration.WithLabelValues(serverID).Observe(duration)
}

// RecordReadError records a failed tag read.
func (r *Registry) RecordReadError(serverID, tagID string) {
	r.ReadsTotal.WithLabelValues(serverID, "error").Inc()
	r.ReadErrors.WithLabelValues(serverID, tagID).Inc()
}

// UpdateConnectionState updates the state gauge for a server.
func (r *Registry) UpdateConnectionState(serverID string, state int32) {
	r.ConnectionState.WithLabelValues(serverID).Set(float64(state))
}

// UpdateValuesStored updates the registry size gauge.
func (r *Registry) UpdateValuesStored(count int) {
	r.ValuesStored.Set(float64(count))
}

// RecordMQTTPublish records an MQTT publish outcome.
func (r *Registry) RecordMQTTPublish(success bool) {
	if success {
		r.MQTTMessagesPublished.Inc()
	} else {
		r.MQTTMessagesFailed.Inc()
	}
}

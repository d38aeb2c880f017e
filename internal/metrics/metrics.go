// Package metrics exposes the engine's Prometheus instrumentation:
// one package-level collector per concern, registered in init, served
// over /metrics via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvengine_commands_total",
		Help: "Total number of commands dispatched by the executor, by command name",
	}, []string{"command"})

	CommandErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvengine_command_errors_total",
		Help: "Total number of commands that returned an Error response, by command name",
	}, []string{"command"})

	KeysTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvengine_keys_total",
		Help: "Current number of keys in the keyspace",
	})

	ExpirationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvengine_expirations_total",
		Help: "Total number of keys lazily expired on access",
	})

	PubSubMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvengine_pubsub_messages_total",
		Help: "Total number of messages delivered across all pub/sub channels",
	})

	PubSubSubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvengine_pubsub_subscribers_active",
		Help: "Current number of active pub/sub subscriber sinks",
	})

	SnapshotWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvengine_snapshot_writes_total",
		Help: "Total number of successful store operations",
	})

	SnapshotLoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kvengine_snapshot_loads_total",
		Help: "Total number of successful load operations",
	})

	SnapshotBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvengine_snapshot_bytes",
		Help:    "Size in bytes of encoded snapshots written to disk",
		Buckets: prometheus.ExponentialBuckets(64, 4, 10),
	})

	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvengine_connected_clients",
		Help: "Current number of connected clients",
	})
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		CommandErrorsTotal,
		KeysTotal,
		ExpirationsTotal,
		PubSubMessagesTotal,
		PubSubSubscribersActive,
		SnapshotWritesTotal,
		SnapshotLoadsTotal,
		SnapshotBytes,
		ConnectedClients,
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

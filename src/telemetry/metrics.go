package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "firefly"

// Metrics holds the collectors of one node. Each node has its own registry so
// that several nodes can run in the same process.
type Metrics struct {
	Registry *prometheus.Registry

	BeaconsSent      prometheus.Counter
	BeaconsReceived  prometheus.Counter
	DatagramsDropped *prometheus.CounterVec
	ReceiveTimeouts  prometheus.Counter
	TransportErrors  *prometheus.CounterVec
	RoleChanges      *prometheus.CounterVec
	SharedState      prometheus.Gauge
	ActiveRole       *prometheus.GaugeVec

	buildInfo *prometheus.GaugeVec
	startTime time.Time
}

// NewMetrics creates and registers the collectors of a node.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		BeaconsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "beacons_sent_total",
				Help:      "Total number of beacons broadcast.",
			},
		),

		BeaconsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "beacons_received_total",
				Help:      "Total number of well-formed beacons received.",
			},
		),

		DatagramsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datagrams_dropped_total",
				Help:      "Datagrams discarded by the receive loop.",
			},
			[]string{"reason"},
		),

		ReceiveTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receive_timeouts_total",
				Help:      "Receive cycles that ended without a datagram.",
			},
		),

		TransportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_errors_total",
				Help:      "Failures to open, use or close the broadcast channel.",
			},
			[]string{"loop"},
		),

		RoleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "role_changes_total",
				Help:      "Roles installed, labeled by the new role.",
			},
			[]string{"role"},
		),

		SharedState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "shared_state",
				Help:      "Current value of the synchronised state.",
			},
		),

		ActiveRole: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "role",
				Help:      "1 for the active role, 0 otherwise.",
			},
			[]string{"role"},
		),

		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build info (constant 1, labeled by version).",
			},
			[]string{"version"},
		),

		startTime: time.Now(),
	}

	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Node uptime in seconds.",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	m.Registry.MustRegister(
		m.BeaconsSent,
		m.BeaconsReceived,
		m.DatagramsDropped,
		m.ReceiveTimeouts,
		m.TransportErrors,
		m.RoleChanges,
		m.SharedState,
		m.ActiveRole,
		m.buildInfo,
		uptime,
	)

	return m
}

// SetBuildInfo should be called once at startup.
func (m *Metrics) SetBuildInfo(version string) {
	m.buildInfo.WithLabelValues(version).Set(1)
}

// SetRole marks role as the only active role. An empty role marks none.
func (m *Metrics) SetRole(role string, all []string) {
	for _, r := range all {
		v := 0.0
		if r == role {
			v = 1
		}
		m.ActiveRole.WithLabelValues(r).Set(v)
	}
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", m.Handler()).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

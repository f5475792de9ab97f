package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every garage agent collector plus the Go and process
// collectors. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// LinkUp is 1 while the network link is associated.
	LinkUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garage_link_up",
			Help: "Network association status (1=Up, 0=Down).",
		},
	)

	// LinkAssociations counts association attempts.
	LinkAssociations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_link_association_attempts_total",
			Help: "Total number of network association attempts.",
		},
		[]string{"result"}, // result: success/failed
	)

	// SessionConnected is 1 while the broker session is open.
	SessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garage_session_connected",
			Help: "Broker session status (1=Connected, 0=Disconnected).",
		},
	)

	// SessionConnects counts broker handshakes.
	SessionConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_session_connects_total",
			Help: "Total number of broker connection attempts.",
		},
		[]string{"result"},
	)

	// DoorState is the last sampled door position.
	DoorState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garage_door_open",
			Help: "Last sampled door position (1=Open, 0=Closed, -1=Unknown).",
		},
	)

	// Reports counts status publishes.
	Reports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_reports_total",
			Help: "Total number of status reports.",
		},
		[]string{"reason", "result"}, // reason: periodic/change
	)

	// Commands counts inbound messages by outcome.
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_commands_total",
			Help: "Total number of inbound messages handled.",
		},
		[]string{"action"}, // action: pulse/ignored/failed
	)

	// SensorErrors counts failed input reads.
	SensorErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garage_sensor_read_errors_total",
			Help: "Total number of failed door switch reads.",
		},
	)

	// Ticks counts control loop iterations.
	Ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "garage_loop_ticks_total",
			Help: "Total number of control loop iterations.",
		},
	)

	// TickLatency records the busy part of an iteration, excluding the sleep.
	TickLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "garage_loop_tick_duration_seconds",
			Help:    "Time spent in one control loop iteration before sleeping.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// UpdateEvents counts firmware update events.
	UpdateEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_ota_events_total",
			Help: "Total number of firmware update events.",
		},
		[]string{"event"}, // event: start/end/error_<kind>
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LinkUp,
		LinkAssociations,
		SessionConnected,
		SessionConnects,
		DoorState,
		Reports,
		Commands,
		SensorErrors,
		Ticks,
		TickLatency,
		UpdateEvents,
	)
	DoorState.Set(-1)
}

// BoolToFloat maps a status flag onto a gauge value.
func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

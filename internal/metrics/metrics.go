package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodeCount tracks the number of mirrored nodes with a label for role
	NodeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipegraph_nodes",
			Help: "Number of nodes in the mirrored audio graph by role",
		},
		[]string{"role"},
	)

	// LinkCount tracks the number of mirrored links
	LinkCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipegraph_links",
			Help: "Number of links in the mirrored audio graph",
		},
	)

	// ModuleCount tracks the number of loaded server modules
	ModuleCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipegraph_modules",
			Help: "Number of loaded server modules",
		},
	)

	// CPULoad tracks the server CPU load averages with a label for window
	CPULoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipegraph_cpu_load",
			Help: "Server CPU load average reported by the profiler",
		},
		[]string{"window"},
	)

	// XRunCount tracks the cumulative xrun counter reported by the profiler
	XRunCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipegraph_xrun_count",
			Help: "Cumulative xrun count reported by the profiler",
		},
	)

	// QuantumMs tracks the current cycle duration in milliseconds
	QuantumMs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipegraph_quantum_ms",
			Help: "Current audio cycle duration in milliseconds",
		},
	)

	// NotificationCycles tracks delivered coalesced notification cycles with a label for kind
	NotificationCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipegraph_notification_cycles_total",
			Help: "Total coalesced change-notification cycles delivered, by change kind",
		},
		[]string{"kind"},
	)
)

// SetNodeCount sets the node gauge for a given role
func SetNodeCount(role string, count float64) {
	NodeCount.WithLabelValues(role).Set(count)
}

// RecordNotificationCycle increments the cycle counter for a given change kind
func RecordNotificationCycle(kind string) {
	NotificationCycles.WithLabelValues(kind).Inc()
}

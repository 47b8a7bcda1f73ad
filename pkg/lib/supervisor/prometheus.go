package supervisor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

var allStates = []lib.LifecycleState{lib.StateStopped, lib.StateStarting, lib.StateRunning, lib.StateStopping}

// PrometheusMetricsCollector implements MetricsCollector using Prometheus metrics
type PrometheusMetricsCollector struct {
	stateTransitions *prometheus.CounterVec
	currentState     *prometheus.GaugeVec

	crashes           prometheus.Counter
	restarts          prometheus.Counter
	restartsExhausted prometheus.Counter
	backoffDuration   prometheus.Histogram

	escalations  *prometheus.CounterVec
	consoleLines *prometheus.CounterVec
	downloads    *prometheus.CounterVec
	commands     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "gsv"
	}

	pmc := &PrometheusMetricsCollector{
		registry: prometheus.NewRegistry(),
	}

	pmc.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of lifecycle state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	pmc.currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current lifecycle state, 1 for the active state",
		},
		[]string{"state"},
	)

	pmc.crashes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crashes_total",
			Help:      "Total number of unintentional server exits",
		},
	)

	pmc.restarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_scheduled_total",
			Help:      "Total number of automatic restarts scheduled after a crash",
		},
	)

	pmc.restartsExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_exhausted_total",
			Help:      "Total number of times the restart budget ran out",
		},
	)

	pmc.backoffDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "restart_backoff_seconds",
			Help:      "Delay applied before automatic restarts",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 60},
		},
	)

	pmc.escalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shutdown_escalations_total",
			Help:      "Total number of stop escalations by signal",
		},
		[]string{"signal"},
	)

	pmc.consoleLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "console_lines_total",
			Help:      "Total number of console lines by classification",
		},
		[]string{"classification"},
	)

	pmc.downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_downloads_total",
			Help:      "Total number of artifact downloads by result",
		},
		[]string{"result"},
	)

	pmc.commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of operator commands by result",
		},
		[]string{"result"},
	)

	pmc.registry.MustRegister(
		pmc.stateTransitions,
		pmc.currentState,
		pmc.crashes,
		pmc.restarts,
		pmc.restartsExhausted,
		pmc.backoffDuration,
		pmc.escalations,
		pmc.consoleLines,
		pmc.downloads,
		pmc.commands,
	)

	pmc.setState(lib.StateStopped)

	return pmc
}

// Registry exposes the collector's registry for an HTTP handler
func (pmc *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return pmc.registry
}

// StateTransition records a state transition and moves the state gauge
func (pmc *PrometheusMetricsCollector) StateTransition(from, to lib.LifecycleState) {
	pmc.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	pmc.setState(to)
}

func (pmc *PrometheusMetricsCollector) setState(current lib.LifecycleState) {
	for _, state := range allStates {
		value := 0.0
		if state == current {
			value = 1
		}
		pmc.currentState.WithLabelValues(state.String()).Set(value)
	}
}

// Crash records an unintentional exit
func (pmc *PrometheusMetricsCollector) Crash() {
	pmc.crashes.Inc()
}

// RestartScheduled records a scheduled restart and its backoff
func (pmc *PrometheusMetricsCollector) RestartScheduled(delay time.Duration) {
	pmc.restarts.Inc()
	pmc.backoffDuration.Observe(delay.Seconds())
}

// RestartsExhausted records that automatic restarts were disabled
func (pmc *PrometheusMetricsCollector) RestartsExhausted() {
	pmc.restartsExhausted.Inc()
}

// Escalation records a terminate or kill signal sent during stop
func (pmc *PrometheusMetricsCollector) Escalation(signal string) {
	pmc.escalations.WithLabelValues(signal).Inc()
}

// ConsoleLine records a published console line
func (pmc *PrometheusMetricsCollector) ConsoleLine(class lib.Classification) {
	pmc.consoleLines.WithLabelValues(string(class)).Inc()
}

// Download records an artifact download result
func (pmc *PrometheusMetricsCollector) Download(result string) {
	pmc.downloads.WithLabelValues(result).Inc()
}

// Command records an operator command result
func (pmc *PrometheusMetricsCollector) Command(result string) {
	pmc.commands.WithLabelValues(result).Inc()
}

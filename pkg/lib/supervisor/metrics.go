package supervisor

import (
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

// MetricsCollector defines the interface for collecting supervisor metrics
type MetricsCollector interface {
	// StateTransition records a lifecycle state change
	StateTransition(from, to lib.LifecycleState)

	// Crash records an unintentional exit
	Crash()

	// RestartScheduled records a backoff restart and its delay
	RestartScheduled(delay time.Duration)

	// RestartsExhausted records that the retry budget ran out
	RestartsExhausted()

	// Escalation records a stop phase escalating to a signal
	Escalation(signal string)

	// ConsoleLine records a line published to observers
	ConsoleLine(class lib.Classification)

	// Download records an artifact download outcome
	Download(result string)

	// Command records the outcome of an operator command
	Command(result string)
}

type noopMetricsCollector struct{}

func (noopMetricsCollector) StateTransition(from, to lib.LifecycleState) {}
func (noopMetricsCollector) Crash()                                      {}
func (noopMetricsCollector) RestartScheduled(delay time.Duration)        {}
func (noopMetricsCollector) RestartsExhausted()                          {}
func (noopMetricsCollector) Escalation(signal string)                    {}
func (noopMetricsCollector) ConsoleLine(class lib.Classification)        {}
func (noopMetricsCollector) Download(result string)                      {}
func (noopMetricsCollector) Command(result string)                       {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return noopMetricsCollector{}
}

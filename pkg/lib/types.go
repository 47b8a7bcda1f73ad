package lib

import "time"

// LifecycleState is the phase of the managed server process.
// Exactly one value is active at any time.
type LifecycleState int

const (
	StateStopped LifecycleState = iota
	StateStarting
	StateRunning
	StateStopping
)

func (state LifecycleState) String() string {
	switch state {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ParseLifecycleState is the inverse of LifecycleState.String.
func ParseLifecycleState(s string) (LifecycleState, bool) {
	switch s {
	case "stopped":
		return StateStopped, true
	case "starting":
		return StateStarting, true
	case "running":
		return StateRunning, true
	case "stopping":
		return StateStopping, true
	}
	return StateStopped, false
}

// Classification tags a console line for presentation.
type Classification string

const (
	ClassError   Classification = "error"
	ClassWarn    Classification = "warn"
	ClassInfo    Classification = "info"
	ClassSystem  Classification = "system"
	ClassSuccess Classification = "success"
	ClassPlain   Classification = "plain"
)

// Stream identifies where a console line came from.
type Stream string

const (
	StreamStdout     Stream = "stdout"
	StreamStderr     Stream = "stderr"
	StreamSupervisor Stream = "supervisor"
)

// ConsoleLine is a single complete line of console output.
type ConsoleLine struct {
	Text           string
	Classification Classification
	Stream         Stream
}

// EventKind distinguishes the payload carried by an Event.
type EventKind string

const (
	EventStatus      EventKind = "status"
	EventConsoleLine EventKind = "console"
	EventCrashAlert  EventKind = "crash_alert"
)

// Event is what the supervisor emits to its observers.
// Only the fields matching Kind are meaningful.
type Event struct {
	Seq  uint64
	Time time.Time
	Kind EventKind

	State    LifecycleState
	Line     ConsoleLine
	Attempts int
}

// ExitStatus describes how a process ended. Signal is empty for a normal exit.
type ExitStatus struct {
	Code   int
	Signal string
	Err    error
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State         LifecycleState
	PID           int
	LaunchID      string
	Generation    uint64
	StartTime     time.Time
	CrashAttempts int
	LastExit      *ExitStatus
}

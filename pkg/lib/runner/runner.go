package runner

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

// DefaultWaitDelay bounds how long Wait keeps draining output after the
// process exited, in case a grandchild holds the pipes open.
const DefaultWaitDelay = 5 * time.Second

// Runner spawns server processes.
type Runner struct {
	logger *slog.Logger
	// cgroup enables a per-launch cgroup v2 with a memory ceiling.
	cgroup    bool
	waitDelay time.Duration
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(runner *Runner) {
		runner.logger = logger
	}
}

// WithCgroup places each launch into its own cgroup when running as root on
// linux. It is ignored elsewhere.
func WithCgroup(enabled bool) Option {
	return func(runner *Runner) {
		runner.cgroup = enabled
	}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	runner := &Runner{
		logger:    logging.Discard(),
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// SysProcAttr carries the platform process attributes and, when a cgroup is
// used, the open cgroup directory that must be closed after Start.
type SysProcAttr struct {
	File   *os.File
	Raw    *syscall.SysProcAttr
	Cgroup bool
}

// Process is the handle of one spawned server process.
type Process struct {
	launchID  string
	pid       int
	startTime time.Time
	cgroup    bool

	stdinMu     sync.Mutex
	stdin       io.WriteCloser
	stdinClosed bool

	done chan struct{}
	mu   sync.RWMutex
	exit lib.ExitStatus
	end  time.Time
}

func (process *Process) LaunchID() string { return process.launchID }

func (process *Process) PID() int { return process.pid }

func (process *Process) StartTime() time.Time { return process.startTime }

// Done is closed once the process has exited and its output was drained.
func (process *Process) Done() <-chan struct{} { return process.done }

// ExitStatus is only meaningful after Done is closed.
func (process *Process) ExitStatus() lib.ExitStatus {
	process.mu.RLock()
	defer process.mu.RUnlock()
	return process.exit
}

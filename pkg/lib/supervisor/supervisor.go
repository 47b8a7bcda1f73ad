// Package supervisor owns the lifecycle of one game server process: start
// with provisioning, ready detection, graceful stop with signal escalation
// and backed-off restarts after crashes.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"vawter.tech/stopper"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/console"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/memplan"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/provision"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/runner"
)

// Supervisor manages exactly one server process. All control operations are
// safe for concurrent use; they are serialized against a single state guarded
// by mu.
type Supervisor struct {
	cfg          config.Config
	readyPattern *regexp.Regexp

	logger      *slog.Logger
	clock       Clock
	spawner     Spawner
	provisioner Provisioner
	hostMemory  func() (uint64, error)
	metrics     MetricsCollector

	journal *console.Journal[lib.Event]
	sctx    *stopper.Context

	pubMu sync.Mutex
	seq   uint64

	mu           sync.Mutex
	state        lib.LifecycleState
	stopped      chan struct{} // closed while the state is Stopped
	proc         Handle
	gen          uint64
	intentional  bool
	ready        bool
	closed       bool
	cancelLaunch context.CancelFunc
	escalation   *escalation
	crash        crashRecord
	pending      Timer
	pendingSeq   uint64
	exitHooks    map[uint64]*exitHook
	hookSeq      uint64
	lastExit     *lib.ExitStatus
}

// New creates a stopped supervisor. cfg is copied and never changes
// afterwards.
func New(cfg config.Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	readyPattern, err := regexp.Compile(cfg.Server.ReadyPattern)
	if err != nil {
		return nil, &config.Error{Key: "server.ready_pattern", Reason: "does not compile", Cause: err}
	}

	s := &Supervisor{
		cfg:          cfg,
		readyPattern: readyPattern,
		state:        lib.StateStopped,
		stopped:      make(chan struct{}),
		exitHooks:    make(map[uint64]*exitHook),
	}
	close(s.stopped)

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.metrics == nil {
		s.metrics = NewNoopMetricsCollector()
	}
	if s.hostMemory == nil {
		s.hostMemory = memplan.HostMemory
	}
	if s.spawner == nil {
		s.spawner = RunnerSpawner{Runner: runner.NewRunner(
			runner.WithLogger(s.logger),
			runner.WithCgroup(cfg.Resources.Cgroup),
		)}
	}
	if s.provisioner == nil {
		s.provisioner = provision.New(
			provision.WithMaxRedirects(cfg.Download.MaxRedirects),
			provision.WithTimeout(cfg.Download.Timeout),
			provision.WithLogger(s.logger),
		)
	}

	s.journal = console.RunNewJournal[lib.Event](cfg.Console.Backlog)
	s.sctx = stopper.WithContext(context.Background())

	s.publish(lib.Event{Kind: lib.EventStatus, State: lib.StateStopped})

	return s, nil
}

// Start launches the server when it is stopped and is a no-op otherwise.
// It returns once the process was spawned or the attempt failed; readiness is
// reported later as a status event. A failed attempt is also published as an
// error console line and always leaves the supervisor stopped.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.state != lib.StateStopped || s.proc != nil {
		s.mu.Unlock()
		return nil
	}
	s.cancelPendingLocked()
	s.gen++
	gen := s.gen
	s.ready = false
	s.intentional = false
	launchCtx, cancel := context.WithCancel(ctx)
	s.cancelLaunch = cancel
	s.setStateLocked(lib.StateStarting)
	s.mu.Unlock()

	logger := s.logger.With(logging.GenerationKey, gen)
	launch, err := s.launch(launchCtx, gen, logger)
	cancel()

	s.mu.Lock()
	s.cancelLaunch = nil

	if err != nil {
		logger.Error("start attempt failed", "error", err)
		s.systemLine(lib.ClassError, "Start failed: %v", err)
		s.setStateLocked(lib.StateStopped)
		s.mu.Unlock()
		return err
	}

	s.proc = launch.handle
	logger.Info("server process started", logging.LaunchIDKey, launch.handle.LaunchID(), logging.PIDKey, launch.handle.PID())
	s.systemLine(lib.ClassSystem, "Server process started (pid %d)", launch.handle.PID())

	s.sctx.Go(func(*stopper.Context) error {
		s.wait(gen, launch)
		return nil
	})

	var stopping Handle
	if s.closed {
		stopping = s.stopLocked()
	}
	s.mu.Unlock()

	if stopping != nil {
		s.deliverStopCommand(stopping)
	}
	return nil
}

// Stop begins a graceful shutdown and returns immediately; progress is
// reported through events. Without a process it only cancels a pending
// automatic restart. A restart waiting for the current process to exit is
// cancelled as well.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancelled := s.cancelPendingLocked()
	if s.dropExitHooksLocked() {
		cancelled = true
	}
	if cancelled {
		s.logger.Info("pending restart cancelled")
		s.systemLine(lib.ClassSystem, "Pending restart cancelled")
	}
	handle := s.stopLocked()
	s.mu.Unlock()

	if handle != nil {
		s.deliverStopCommand(handle)
	}
}

// Restart stops the server and starts it again once its exit was observed
// and the settle delay passed. It returns without waiting. From the stopped
// state it behaves exactly as Start. While a start is still provisioning
// there is no process to stop yet and Restart does nothing.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.state == lib.StateStopped && s.proc == nil {
		s.mu.Unlock()
		return s.Start(ctx)
	}
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	// Without a handle only an exit already under way can be waited for.
	handle := s.stopLocked()
	if handle == nil && s.proc == nil {
		state := s.state
		s.mu.Unlock()
		s.logger.Info("restart ignored, no process to stop", logging.StateKey, state.String())
		return nil
	}
	s.addExitHookLocked(func() {
		s.systemLine(lib.ClassSystem, "Restarting in %s", s.cfg.Restart.SettleDelay)
		s.scheduleStartLocked(s.cfg.Restart.SettleDelay)
	})
	s.mu.Unlock()

	if handle != nil {
		s.deliverStopCommand(handle)
	}
	return nil
}

// SendCommand writes one line to the server's console input. It performs no
// write and returns the reason when there is no process, its input is closed,
// or text is too long or spans several lines.
func (s *Supervisor) SendCommand(text string) error {
	s.mu.Lock()
	handle := s.proc
	s.mu.Unlock()

	if err := s.checkCommand(handle, text); err != nil {
		s.metrics.Command(commandResult(err))
		return err
	}

	s.systemLine(lib.ClassSystem, "> %s", text)
	if err := handle.WriteLine(text); err != nil {
		s.metrics.Command(commandResult(err))
		return err
	}
	s.metrics.Command("sent")
	return nil
}

func (s *Supervisor) checkCommand(handle Handle, text string) error {
	switch {
	case handle == nil:
		return lib.ErrNotRunning
	case !handle.InputWritable():
		return lib.ErrInputClosed
	case len(text) > s.cfg.Console.MaxCommandLength:
		return fmt.Errorf("%w: %d > %d", lib.ErrCommandTooLong, len(text), s.cfg.Console.MaxCommandLength)
	case strings.ContainsAny(text, "\r\n"):
		return lib.ErrInvalidCommand
	}
	return nil
}

// Status returns a snapshot of the supervisor.
func (s *Supervisor) Status() lib.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := lib.Status{
		State:         s.state,
		Generation:    s.gen,
		CrashAttempts: s.crash.attempts,
	}
	if s.proc != nil {
		status.PID = s.proc.PID()
		status.LaunchID = s.proc.LaunchID()
		status.StartTime = s.proc.StartTime()
	}
	if s.lastExit != nil {
		exit := *s.lastExit
		status.LastExit = &exit
	}
	return status
}

// Subscribe returns the retained event backlog followed by live events. The
// channel closes when ctx is done or the supervisor is closed.
func (s *Supervisor) Subscribe(ctx context.Context, capacity int) <-chan lib.Event {
	return s.journal.Subscribe(ctx, capacity)
}

// Backlog copies the retained events.
func (s *Supervisor) Backlog() []lib.Event {
	return s.journal.Snapshot()
}

// Close stops the server with the full escalation and releases the
// supervisor. If ctx ends first the process is killed. No operation has any
// effect afterwards.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.cancelPendingLocked()
	if s.cancelLaunch != nil {
		s.cancelLaunch()
	}
	handle := s.stopLocked()
	stopped := s.stopped
	s.mu.Unlock()

	if handle != nil {
		s.deliverStopCommand(handle)
	}

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		err = ctx.Err()
		s.mu.Lock()
		if s.proc != nil {
			s.logger.Warn("close deadline reached, killing server")
			_ = s.proc.Kill()
		}
		s.mu.Unlock()
		<-stopped
	}

	s.mu.Lock()
	s.dropExitHooksLocked()
	s.mu.Unlock()

	s.sctx.Stop(time.Second)
	if waitErr := s.sctx.Wait(); err == nil {
		err = waitErr
	}
	s.journal.Stop()

	return err
}

// stopLocked moves a live process into Stopping and arms the escalation. It
// returns the handle the stop command must be written to, or nil when there
// is nothing to stop.
func (s *Supervisor) stopLocked() Handle {
	if s.proc == nil || s.state == lib.StateStopping {
		return nil
	}
	s.intentional = true
	s.setStateLocked(lib.StateStopping)
	s.escalation = s.armEscalationLocked(s.gen, s.proc)
	return s.proc
}

func (s *Supervisor) wait(gen uint64, launch *launched) {
	<-launch.handle.Done()
	launch.stdout.Flush()
	launch.stderr.Flush()
	s.handleExit(gen, launch.handle)
}

func (s *Supervisor) handleExit(gen uint64, handle Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != handle {
		return
	}

	status := handle.ExitStatus()
	s.proc = nil
	s.lastExit = &status
	if s.escalation != nil {
		s.escalation.cancel()
		s.escalation = nil
	}
	intentional := s.intentional
	s.intentional = false

	logger := s.logger.With(logging.GenerationKey, gen, logging.LaunchIDKey, handle.LaunchID())
	logger.Info("server process exited", "code", status.Code, "signal", status.Signal, "intentional", intentional)

	class := lib.ClassSystem
	if !intentional {
		class = lib.ClassError
	}
	s.systemLine(class, "%s", describeExit(status))

	s.setStateLocked(lib.StateStopped)
	s.fireExitHooksLocked()

	if !intentional {
		s.handleCrashLocked(logger)
	}
}

func (s *Supervisor) handleCrashLocked(logger *slog.Logger) {
	s.metrics.Crash()

	if !s.cfg.Restart.Enabled {
		s.systemLine(lib.ClassWarn, "Server stopped unexpectedly; automatic restart is disabled")
		return
	}

	decision := s.crash.observe(s.clock.Now(), s.cfg.Restart)
	if decision.exhausted {
		logger.Error("restart budget exhausted", logging.AttemptKey, decision.attempts)
		s.metrics.RestartsExhausted()
		s.publish(lib.Event{Kind: lib.EventCrashAlert, Attempts: decision.attempts})
		s.systemLine(lib.ClassError, "Server crashed %d times; auto-restart disabled, manual intervention required", decision.attempts)
		return
	}

	logger.Warn("scheduling restart", logging.AttemptKey, decision.attempts, logging.DelayKey, decision.delay)
	s.metrics.RestartScheduled(decision.delay)
	s.systemLine(lib.ClassWarn, "Server crashed, restarting in %s (attempt %d/%d)",
		decision.delay, decision.attempts, s.cfg.Restart.MaxAttempts)
	s.scheduleStartLocked(decision.delay)
}

// scheduleStartLocked replaces any pending start with one that fires after
// delay.
func (s *Supervisor) scheduleStartLocked(delay time.Duration) {
	s.cancelPendingLocked()
	s.pendingSeq++
	seq := s.pendingSeq

	s.pending = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.pending == nil || s.pendingSeq != seq {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()

		if err := s.Start(s.sctx); err != nil {
			s.logger.Warn("scheduled start failed", "error", err)
		}
	})
}

func (s *Supervisor) cancelPendingLocked() bool {
	if s.pending == nil {
		return false
	}
	s.pending.Stop()
	s.pending = nil
	s.pendingSeq++
	return true
}

type exitHook struct {
	fire   func()
	safety Timer
}

// addExitHookLocked registers a one-shot callback for the next exit. The
// safety timer drops it if no exit is observed in time.
func (s *Supervisor) addExitHookLocked(fire func()) {
	s.hookSeq++
	id := s.hookSeq
	hook := &exitHook{fire: fire}
	hook.safety = s.clock.AfterFunc(s.cfg.Restart.ExitWaitTime, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.exitHooks[id]; !ok {
			return
		}
		delete(s.exitHooks, id)
		s.logger.Warn("exit not observed, restart abandoned", "timeout", s.cfg.Restart.ExitWaitTime)
		s.systemLine(lib.ClassWarn, "Server did not exit within %s, restart abandoned", s.cfg.Restart.ExitWaitTime)
	})
	s.exitHooks[id] = hook
}

// dropExitHooksLocked discards every registered hook without firing it and
// reports whether there were any.
func (s *Supervisor) dropExitHooksLocked() bool {
	if len(s.exitHooks) == 0 {
		return false
	}
	for id, hook := range s.exitHooks {
		hook.safety.Stop()
		delete(s.exitHooks, id)
	}
	return true
}

func (s *Supervisor) fireExitHooksLocked() {
	hooks := s.exitHooks
	s.exitHooks = make(map[uint64]*exitHook)
	for _, hook := range hooks {
		hook.safety.Stop()
		hook.fire()
	}
}

func (s *Supervisor) setStateLocked(to lib.LifecycleState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to

	switch {
	case to == lib.StateStopped:
		close(s.stopped)
	case from == lib.StateStopped:
		s.stopped = make(chan struct{})
	}

	s.metrics.StateTransition(from, to)
	s.logger.Info("state changed", "from", from.String(), logging.StateKey, to.String(), logging.GenerationKey, s.gen)
	s.publish(lib.Event{Kind: lib.EventStatus, State: to})
}

func (s *Supervisor) publish(event lib.Event) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.seq++
	event.Seq = s.seq
	event.Time = s.clock.Now()
	s.journal.Append(event)
}

func (s *Supervisor) publishLine(stream lib.Stream, class lib.Classification, text string) {
	s.metrics.ConsoleLine(class)
	s.publish(lib.Event{
		Kind: lib.EventConsoleLine,
		Line: lib.ConsoleLine{Text: text, Classification: class, Stream: stream},
	})
}

func (s *Supervisor) systemLine(class lib.Classification, format string, args ...any) {
	s.publishLine(lib.StreamSupervisor, class, fmt.Sprintf(format, args...))
}

func describeExit(status lib.ExitStatus) string {
	if status.Signal != "" {
		return fmt.Sprintf("Server process terminated by signal: %s", status.Signal)
	}
	return fmt.Sprintf("Server process exited with code %d", status.Code)
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, lib.ErrNotRunning):
		return "not_running"
	case errors.Is(err, lib.ErrCommandTooLong):
		return "too_long"
	case errors.Is(err, lib.ErrInvalidCommand):
		return "invalid"
	case errors.Is(err, lib.ErrInputClosed):
		return "input_closed"
	default:
		return "failed"
	}
}

package supervisor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/provision"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/runner"
)

// fakeClock fires timers only from Advance, in deadline order, outside its
// own lock.
type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*fakeTimer
	scheduled []time.Duration
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	c.scheduled = append(c.scheduled, d)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, timer := range c.timers {
			if !timer.stopped && !timer.fired && !timer.at.After(target) {
				due = append(due, timer)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Scheduled lists every delay ever passed to AfterFunc, in order.
func (c *fakeClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.scheduled...)
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			n++
		}
	}
	return n
}

// fakeHandle is a scripted server process.
type fakeHandle struct {
	id     string
	pid    int
	stdout io.Writer
	stderr io.Writer
	done   chan struct{}

	// exitOn makes the process exit cleanly when this line is written.
	exitOn     string
	ignoreTerm bool
	ignoreKill bool
	// writeGate, when set, holds every WriteLine until it is closed.
	writeGate chan struct{}

	mu          sync.Mutex
	exit        lib.ExitStatus
	exited      bool
	lines       []string
	signals     []string
	inputClosed bool
}

func (h *fakeHandle) LaunchID() string           { return h.id }
func (h *fakeHandle) PID() int                   { return h.pid }
func (h *fakeHandle) StartTime() time.Time       { return time.Time{} }
func (h *fakeHandle) Done() <-chan struct{}      { return h.done }
func (h *fakeHandle) ExitStatus() lib.ExitStatus { h.mu.Lock(); defer h.mu.Unlock(); return h.exit }

func (h *fakeHandle) WriteLine(text string) error {
	if h.writeGate != nil {
		<-h.writeGate
	}
	h.mu.Lock()
	if h.inputClosed {
		h.mu.Unlock()
		return lib.ErrInputClosed
	}
	h.lines = append(h.lines, text)
	h.mu.Unlock()

	if h.exitOn != "" && text == h.exitOn {
		h.Exit(lib.ExitStatus{Code: 0})
	}
	return nil
}

func (h *fakeHandle) InputWritable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.inputClosed
}

func (h *fakeHandle) Terminate() error {
	h.mu.Lock()
	h.signals = append(h.signals, signalTerminate)
	h.mu.Unlock()
	if !h.ignoreTerm {
		h.Exit(lib.ExitStatus{Code: -1, Signal: "terminated"})
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	h.signals = append(h.signals, signalKill)
	h.mu.Unlock()
	if !h.ignoreKill {
		h.Exit(lib.ExitStatus{Code: -1, Signal: "killed"})
	}
	return nil
}

// Emit writes a line to the process's stdout.
func (h *fakeHandle) Emit(line string) {
	_, _ = fmt.Fprintln(h.stdout, line)
}

// Exit ends the process once; later calls are ignored.
func (h *fakeHandle) Exit(status lib.ExitStatus) {
	h.mu.Lock()
	if h.exited {
		h.mu.Unlock()
		return
	}
	h.exited = true
	h.exit = status
	h.inputClosed = true
	h.mu.Unlock()
	close(h.done)
}

func (h *fakeHandle) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

func (h *fakeHandle) Signals() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.signals...)
}

type fakeSpawner struct {
	mu      sync.Mutex
	handles []*fakeHandle
	specs   []runner.LaunchSpec
	err     error
	// configure adjusts every new handle before it is returned.
	configure func(*fakeHandle)
}

func (s *fakeSpawner) Spawn(spec runner.LaunchSpec, stdout, stderr io.Writer) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, &lib.SpawnError{Command: spec.ArtifactPath, Err: s.err}
	}
	handle := &fakeHandle{
		id:     spec.LaunchID,
		pid:    1000 + len(s.handles),
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
		exitOn: "stop",
	}
	if s.configure != nil {
		s.configure(handle)
	}
	s.handles = append(s.handles, handle)
	s.specs = append(s.specs, spec)
	return handle, nil
}

func (s *fakeSpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *fakeSpawner) Last() *fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.handles) == 0 {
		return nil
	}
	return s.handles[len(s.handles)-1]
}

type fakeProvisioner struct {
	runtimeErr error
	ensureErr  error
	// gate, when set, keeps EnsureArtifact busy until it is closed.
	gate chan struct{}
}

func (p *fakeProvisioner) CheckRuntime(provision.Artifact) error { return p.runtimeErr }

func (p *fakeProvisioner) EnsureArtifact(ctx context.Context, _ provision.Artifact, _ provision.Reporter) error {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.ensureErr
}

type harness struct {
	sup     *Supervisor
	clock   *fakeClock
	spawner *fakeSpawner
	prov    *fakeProvisioner
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Server.ArtifactPath = "/srv/game/server.jar"
	cfg.Server.ReadyPattern = `Done \(`
	cfg.Restart.ResetWindow = 5 * time.Minute
	return cfg
}

func newHarness(t *testing.T, cfg config.Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(),
		spawner: &fakeSpawner{},
		prov:    &fakeProvisioner{},
	}
	base := []Option{
		WithClock(h.clock),
		WithSpawner(h.spawner),
		WithProvisioner(h.prov),
		WithHostMemory(func() (uint64, error) { return 16 << 30, nil }),
	}
	sup, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	h.sup = sup
	return h
}

func (h *harness) waitState(t *testing.T, state lib.LifecycleState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.sup.Status().State == state
	}, 2*time.Second, 5*time.Millisecond, "state never became %s (is %s)", state, h.sup.Status().State)
}

// startRunning starts a process and drives it to Running.
func (h *harness) startRunning(t *testing.T) *fakeHandle {
	t.Helper()
	require.NoError(t, h.sup.Start(context.Background()))
	handle := h.spawner.Last()
	require.NotNil(t, handle)
	handle.Emit("[12:00:01 INFO]: Done (3.21s)! For help, type \"help\"")
	h.waitState(t, lib.StateRunning)
	return handle
}

func statesOf(events []lib.Event) []lib.LifecycleState {
	var states []lib.LifecycleState
	for _, event := range events {
		if event.Kind == lib.EventStatus {
			states = append(states, event.State)
		}
	}
	return states
}

func linesContaining(events []lib.Event, substr string) []lib.ConsoleLine {
	var lines []lib.ConsoleLine
	for _, event := range events {
		if event.Kind == lib.EventConsoleLine && strings.Contains(event.Line.Text, substr) {
			lines = append(lines, event.Line)
		}
	}
	return lines
}

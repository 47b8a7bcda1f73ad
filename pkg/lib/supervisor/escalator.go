package supervisor

import (
	"vawter.tech/stopper"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

const (
	signalTerminate = "SIGTERM"
	signalKill      = "SIGKILL"
)

// escalation holds the two pending signal phases of one stop. Both deadlines
// are measured from the stop request.
type escalation struct {
	terminate Timer
	kill      Timer
}

func (e *escalation) cancel() {
	e.terminate.Stop()
	e.kill.Stop()
}

func (s *Supervisor) armEscalationLocked(gen uint64, handle Handle) *escalation {
	shutdown := s.cfg.Shutdown
	return &escalation{
		terminate: s.clock.AfterFunc(shutdown.TerminateAfter, func() {
			s.escalate(gen, handle, signalTerminate)
		}),
		kill: s.clock.AfterFunc(shutdown.KillAfter, func() {
			s.escalate(gen, handle, signalKill)
		}),
	}
}

// deliverStopCommand writes the stop command in the background so that a
// server not draining its input cannot hold up the caller. The escalation is
// already armed when this runs.
func (s *Supervisor) deliverStopCommand(handle Handle) {
	s.sctx.Go(func(*stopper.Context) error {
		s.sendStopCommand(handle)
		return nil
	})
}

// sendStopCommand is the graceful phase. It must be called without mu held
// since the write may block on a full pipe.
func (s *Supervisor) sendStopCommand(handle Handle) {
	command := s.cfg.Server.StopCommand
	if command == "" {
		return
	}

	s.systemLine(lib.ClassSystem, "> %s", command)
	if err := handle.WriteLine(command); err != nil {
		s.logger.Warn("stop command not delivered", logging.LaunchIDKey, handle.LaunchID(), "error", err)
		s.systemLine(lib.ClassWarn, "Could not send stop command: %v", err)
	}
}

// escalate acts only if the stop it was armed for is still in progress for
// the very same process.
func (s *Supervisor) escalate(gen uint64, handle Handle, signal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.proc != handle || s.state != lib.StateStopping {
		return
	}

	logger := s.logger.With(logging.GenerationKey, gen, logging.LaunchIDKey, handle.LaunchID())
	s.metrics.Escalation(signal)

	var err error
	switch signal {
	case signalTerminate:
		logger.Warn("stop timed out, terminating", "after", s.cfg.Shutdown.TerminateAfter)
		s.systemLine(lib.ClassInfo, "Server did not stop within %s, sending %s", s.cfg.Shutdown.TerminateAfter, signal)
		err = handle.Terminate()
	case signalKill:
		logger.Warn("stop timed out, killing", "after", s.cfg.Shutdown.KillAfter)
		s.systemLine(lib.ClassInfo, "Server did not stop within %s, sending %s", s.cfg.Shutdown.KillAfter, signal)
		err = handle.Kill()
	}
	if err != nil {
		logger.Error("failed to signal server", "signal", signal, "error", err)
	}
}

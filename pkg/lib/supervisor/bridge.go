package supervisor

import (
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/console"
)

// bridge returns the line sink of one output stream for launch gen. Lines are
// classified and broadcast; on stdout the first ready match of the launch
// moves it to Running.
func (s *Supervisor) bridge(gen uint64, stream lib.Stream) func(string) {
	return func(text string) {
		class := console.Classify(text, stream)

		s.mu.Lock()
		defer s.mu.Unlock()

		s.publishLine(stream, class, text)
		if stream == lib.StreamStdout && s.readyPattern.MatchString(text) {
			s.markReadyLocked(gen)
		}
	}
}

func (s *Supervisor) markReadyLocked(gen uint64) {
	if s.gen != gen || s.ready || s.state != lib.StateStarting {
		return
	}
	s.ready = true
	s.crash.reset()
	s.logger.Info("server is ready")
	s.setStateLocked(lib.StateRunning)
}

package supervisor

import (
	"log/slog"
)

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithLogger sets the audit logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used for every timer.
func WithClock(clock Clock) Option {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// WithSpawner replaces the process launcher.
func WithSpawner(spawner Spawner) Option {
	return func(s *Supervisor) {
		s.spawner = spawner
	}
}

// WithProvisioner replaces the artifact provisioner.
func WithProvisioner(provisioner Provisioner) Option {
	return func(s *Supervisor) {
		s.provisioner = provisioner
	}
}

// WithHostMemory replaces the host memory query.
func WithHostMemory(hostMemory func() (uint64, error)) Option {
	return func(s *Supervisor) {
		s.hostMemory = hostMemory
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(s *Supervisor) {
		s.metrics = mc
	}
}

package supervisor

import (
	"context"
	"io"
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/provision"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/runner"
)

// Handle is a live server process as seen by the supervisor.
// *runner.Process implements it.
type Handle interface {
	LaunchID() string
	PID() int
	StartTime() time.Time
	Done() <-chan struct{}
	ExitStatus() lib.ExitStatus
	WriteLine(text string) error
	InputWritable() bool
	Terminate() error
	Kill() error
}

// Spawner starts a process for a launch spec, streaming its output into the
// given writers.
type Spawner interface {
	Spawn(spec runner.LaunchSpec, stdout, stderr io.Writer) (Handle, error)
}

// Provisioner makes sure an artifact and its runtime are present.
type Provisioner interface {
	CheckRuntime(artifact provision.Artifact) error
	EnsureArtifact(ctx context.Context, artifact provision.Artifact, report provision.Reporter) error
}

// RunnerSpawner adapts a *runner.Runner to Spawner.
type RunnerSpawner struct {
	Runner *runner.Runner
}

func (s RunnerSpawner) Spawn(spec runner.LaunchSpec, stdout, stderr io.Writer) (Handle, error) {
	process, err := s.Runner.Spawn(spec, stdout, stderr)
	if err != nil {
		return nil, err
	}
	return process, nil
}

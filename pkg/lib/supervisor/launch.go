package supervisor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/console"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/memplan"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/provision"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/runner"
)

type launched struct {
	handle Handle
	stdout *console.LineSplitter
	stderr *console.LineSplitter
}

// launch runs one start attempt: plan memory, check the runtime, make sure
// the artifact exists and spawn.
func (s *Supervisor) launch(ctx context.Context, gen uint64, logger *slog.Logger) (*launched, error) {
	alloc := s.planMemory(logger)

	spec, err := runner.NewLaunchSpec(s.cfg.Server, alloc)
	if err != nil {
		return nil, err
	}
	logger = logger.With(logging.LaunchIDKey, spec.LaunchID)

	artifact := provision.Artifact{
		Path:        spec.ArtifactPath,
		DownloadURL: s.cfg.Server.DownloadURL,
		Executable:  spec.Kind == config.KindNative,
	}
	if spec.Kind == config.KindManaged {
		artifact.Runtime = spec.RuntimePath
	}

	if err := s.provisioner.CheckRuntime(artifact); err != nil {
		return nil, err
	}

	_, statErr := os.Stat(artifact.Path)
	fetching := errors.Is(statErr, fs.ErrNotExist) && artifact.DownloadURL != ""
	err = s.provisioner.EnsureArtifact(ctx, artifact, func(class lib.Classification, text string) {
		s.systemLine(class, "%s", text)
	})
	if fetching {
		result := "success"
		if err != nil {
			result = "failure"
		}
		s.metrics.Download(result)
	}
	if err != nil {
		return nil, err
	}

	stdout := console.NewLineSplitter(0, s.bridge(gen, lib.StreamStdout))
	stderr := console.NewLineSplitter(0, s.bridge(gen, lib.StreamStderr))

	logger.Debug("spawning server", "kind", spec.Kind, "artifact", spec.ArtifactPath)
	handle, err := s.spawner.Spawn(spec, stdout, stderr)
	if err != nil {
		return nil, err
	}

	return &launched{handle: handle, stdout: stdout, stderr: stderr}, nil
}

func (s *Supervisor) planMemory(logger *slog.Logger) memplan.Allocation {
	host, err := s.hostMemory()
	if err != nil {
		logger.Warn("host memory unknown, not clamping", "error", err)
		host = 0
	}

	alloc := memplan.Plan(memplan.Settings{
		Requested:    s.cfg.Server.Memory,
		HostFraction: s.cfg.Resources.HostFraction,
		MinFraction:  s.cfg.Resources.MinFraction,
		MinFloor:     s.cfg.Resources.MinFloor,
		Fallback:     s.cfg.Resources.Fallback,
	}, host)
	if alloc.FellBack {
		logger.Warn("invalid memory setting, using fallback", "value", s.cfg.Server.Memory, "error", alloc.ParseErr)
	}

	s.systemLine(lib.ClassInfo, "%s", alloc.Describe())
	return alloc
}

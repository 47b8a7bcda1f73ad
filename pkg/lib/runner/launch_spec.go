package runner

import (
	"fmt"
	"path/filepath"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/memplan"
)

// LaunchSpec is everything needed for one launch attempt. It is built fresh
// on every start and never mutated afterwards.
type LaunchSpec struct {
	LaunchID     string
	ArtifactPath string
	Kind         config.Kind
	RuntimePath  string
	Allocation   memplan.Allocation
	JVMArgs      []string
	ExtraArgs    []string
	WorkingDir   string
	Env          []string
}

// NewLaunchSpec resolves the configured server section into a spec.
func NewLaunchSpec(server config.ServerConfig, alloc memplan.Allocation) (LaunchSpec, error) {
	artifact, err := filepath.Abs(server.ArtifactPath)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("resolve artifact path: %w", err)
	}
	workDir, err := filepath.Abs(server.WorkingDir)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("resolve working dir: %w", err)
	}

	return LaunchSpec{
		LaunchID:     lib.NewLaunchID(),
		ArtifactPath: artifact,
		Kind:         server.Kind,
		RuntimePath:  server.RuntimePath,
		Allocation:   alloc,
		JVMArgs:      append([]string(nil), server.JVMArgs...),
		ExtraArgs:    append([]string(nil), server.ExtraArgs...),
		WorkingDir:   workDir,
		Env:          append([]string(nil), server.Env...),
	}, nil
}

// CommandLine returns the executable and its arguments.
func (spec LaunchSpec) CommandLine() (string, []string) {
	if spec.Kind == config.KindManaged {
		args := make([]string, 0, 4+len(spec.JVMArgs)+len(spec.ExtraArgs))
		if spec.Allocation.MinMegabytes() > 0 {
			args = append(args, fmt.Sprintf("-Xms%dM", spec.Allocation.MinMegabytes()))
		}
		if spec.Allocation.MaxMegabytes() > 0 {
			args = append(args, fmt.Sprintf("-Xmx%dM", spec.Allocation.MaxMegabytes()))
		}
		args = append(args, spec.JVMArgs...)
		args = append(args, "-jar", spec.ArtifactPath)
		args = append(args, spec.ExtraArgs...)
		return spec.RuntimePath, args
	}

	return spec.ArtifactPath, append([]string(nil), spec.ExtraArgs...)
}

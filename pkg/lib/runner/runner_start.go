package runner

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

// Spawn starts the process described by spec. Output is pushed into stdout
// and stderr as it arrives; Done closes only after both writers have received
// everything. A failed spawn returns a *lib.SpawnError and no handle.
func (runner *Runner) Spawn(spec LaunchSpec, stdout, stderr io.Writer) (*Process, error) {
	name, args := spec.CommandLine()
	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))

	launchID := spec.LaunchID
	if launchID == "" {
		launchID = lib.NewLaunchID()
	}
	logger := runner.logger.With(logging.LaunchIDKey, launchID)

	cmd := exec.Command(name, args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = runner.waitDelay

	sysProcAttr := runner.sysProcAttr(launchID, spec.Allocation.MaxBytes, logger)
	cmd.SysProcAttr = sysProcAttr.Raw

	stdin, err := cmd.StdinPipe()
	if err != nil {
		runner.releaseCgroup(launchID, sysProcAttr)
		return nil, &lib.SpawnError{Command: commandLine, Err: err}
	}

	logger.Info("starting process", "command", commandLine, "dir", spec.WorkingDir)
	if err := cmd.Start(); err != nil {
		logger.Error("failed to start process", "error", err)
		runner.releaseCgroup(launchID, sysProcAttr)
		return nil, &lib.SpawnError{Command: commandLine, Err: err}
	}

	if sysProcAttr.File != nil {
		_ = sysProcAttr.File.Close()
	}

	process := &Process{
		launchID:  launchID,
		pid:       cmd.Process.Pid,
		startTime: time.Now(),
		cgroup:    sysProcAttr.Cgroup,
		stdin:     stdin,
		done:      make(chan struct{}),
	}

	// Waiter
	go func() {
		err := cmd.Wait()
		status := exitStatusFrom(err)

		if status.Signal != "" {
			logger.Info("process terminated by signal", "signal", status.Signal)
		} else {
			logger.Info("process exited", "code", status.Code)
		}

		process.closeInput()

		process.mu.Lock()
		process.exit = status
		process.end = time.Now()
		process.mu.Unlock()

		if process.cgroup {
			_ = CleanupCgroup(launchID)
		}

		close(process.done)
	}()

	logger.Info("process started", logging.PIDKey, process.pid)

	return process, nil
}

func (runner *Runner) sysProcAttr(launchID string, memoryHigh uint64, logger *slog.Logger) *SysProcAttr {
	if !runner.cgroup {
		return defaultSysProcAttr()
	}

	attr, err := GetSysProcAttr(launchID, memoryHigh)
	if err != nil {
		logger.Warn("cgroup setup failed, continuing without memory ceiling", "error", err)
		_ = CleanupCgroup(launchID)
		return defaultSysProcAttr()
	}
	return attr
}

func (runner *Runner) releaseCgroup(launchID string, attr *SysProcAttr) {
	if attr.File != nil {
		_ = attr.File.Close()
	}
	if attr.Cgroup {
		_ = CleanupCgroup(launchID)
	}
}

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group to signal the server and its children as a unit
			Setpgid: true,
		},
	}
}

func exitStatusFrom(err error) lib.ExitStatus {
	if err == nil {
		return lib.ExitStatus{Code: 0}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return lib.ExitStatus{Code: -1, Signal: ws.Signal().String(), Err: err}
		}
		return lib.ExitStatus{Code: exitErr.ExitCode(), Err: err}
	}

	// Non-exit error (e.g. WaitDelay expired), exit code unknown
	return lib.ExitStatus{Code: -1, Err: err}
}

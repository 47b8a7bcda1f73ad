package runner

import (
	"errors"
	"syscall"
)

// Terminate asks the process group to exit with SIGTERM.
func (process *Process) Terminate() error {
	return process.signalGroup(syscall.SIGTERM)
}

// Kill forcefully ends the process: cgroup kill on linux when the launch has
// its own cgroup, otherwise SIGKILL to the process group.
func (process *Process) Kill() error {
	if process.cgroup {
		if succeeded, _ := KillCgroup(process.launchID); succeeded {
			return nil
		}
	}
	return process.signalGroup(syscall.SIGKILL)
}

func (process *Process) signalGroup(sig syscall.Signal) error {
	select {
	case <-process.done:
		return nil
	default:
	}

	// Negative PID means process group
	err := syscall.Kill(-process.pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		// group already gone, try the leader alone
		err = syscall.Kill(process.pid, sig)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
	}
	return err
}

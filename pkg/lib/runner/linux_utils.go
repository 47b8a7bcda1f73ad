//go:build linux

package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	cgroupRoot = "/sys/fs/cgroup/gsv"
)

var (
	cgroupInitOnce sync.Once
	cgroupInitErr  error

	errNotRoot = errors.New("cgroups require root")
)

// initCgroups prepares the supervisor's cgroup root and enables the
// controllers it needs. Real work happens only once.
func initCgroups() error {
	cgroupInitOnce.Do(func() {
		cgroupInitErr = initCgroupsImpl()
	})
	return cgroupInitErr
}

func initCgroupsImpl() error {
	if err := os.MkdirAll(cgroupRoot, 0755); err != nil {
		return err
	}

	available, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.controllers"))
	if err != nil {
		return err
	}
	enabled, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.subtree_control"))
	if err != nil {
		return err
	}

	desired := []string{"cpu", "io", "memory"}
	var toAdd []string
	for _, ctrl := range desired {
		if available[ctrl] && !enabled[ctrl] {
			toAdd = append(toAdd, "+"+ctrl)
		}
	}
	if len(toAdd) > 0 {
		if err := writeString(filepath.Join(cgroupRoot, "cgroup.subtree_control"), strings.Join(toAdd, " ")); err != nil {
			return err
		}
	}
	return nil
}

func readControllerSet(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range strings.Fields(string(data)) {
		// subtree_control may present names with a "+" prefix
		set[strings.TrimPrefix(f, "+")] = true
	}
	return set, nil
}

// GetSysProcAttr creates a cgroup for the launch, caps its memory at
// memoryHigh bytes when the memory controller is available, and returns
// attributes that start the process directly inside it.
func GetSysProcAttr(id string, memoryHigh uint64) (*SysProcAttr, error) {
	if os.Geteuid() != 0 {
		return nil, errNotRoot
	}

	if err := initCgroups(); err != nil {
		return nil, fmt.Errorf("init cgroup root: %w", err)
	}

	cgPath, err := setupCgroupFor(id, memoryHigh)
	if err != nil {
		return nil, err
	}

	cGroupFile, err := os.Open(cgPath)
	if err != nil {
		return nil, err
	}

	return &SysProcAttr{
		File: cGroupFile,
		Raw: &syscall.SysProcAttr{
			Setpgid:     true,
			UseCgroupFD: true,
			CgroupFD:    int(cGroupFile.Fd()),
		},
		Cgroup: true,
	}, nil
}

func KillCgroup(id string) (bool, error) {
	cgDir := filepath.Join(cgroupRoot, id)
	err := writeString(filepath.Join(cgDir, "cgroup.kill"), "1")

	return err == nil, err
}

func CleanupCgroup(id string) error {
	return os.Remove(filepath.Join(cgroupRoot, id))
}

func setupCgroupFor(launchID string, memoryHigh uint64) (string, error) {
	processRoot := filepath.Join(cgroupRoot, launchID)
	if err := os.MkdirAll(processRoot, 0755); err != nil {
		return "", err
	}

	if controllerEnabled(cgroupRoot, "cpu") {
		if err := writeString(filepath.Join(processRoot, "cpu.weight"), "100"); err != nil {
			return "", err
		}
	}
	if controllerEnabled(cgroupRoot, "io") {
		if err := writeString(filepath.Join(processRoot, "io.weight"), "100"); err != nil {
			return "", err
		}
	}
	if memoryHigh > 0 && controllerEnabled(cgroupRoot, "memory") {
		// JVM heap plus metaspace and native buffers; leave headroom above -Xmx
		limit := memoryHigh + memoryHigh/4
		if err := writeString(filepath.Join(processRoot, "memory.high"), fmt.Sprint(limit)); err != nil {
			return "", err
		}
	}

	return processRoot, nil
}

func controllerEnabled(cgPath, controller string) bool {
	enabled, err := readControllerSet(filepath.Join(cgPath, "cgroup.subtree_control"))
	if err != nil {
		return false
	}
	return enabled[controller]
}

func writeString(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}

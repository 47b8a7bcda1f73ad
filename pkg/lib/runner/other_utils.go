//go:build !linux

package runner

import "errors"

func GetSysProcAttr(id string, memoryHigh uint64) (*SysProcAttr, error) {
	return nil, errors.New("cgroups are only supported on linux")
}

func KillCgroup(id string) (bool, error) {
	return false, nil
}

func CleanupCgroup(id string) error {
	return nil
}

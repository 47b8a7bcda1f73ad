//go:build linux

package memplan

import (
	"golang.org/x/sys/unix"
)

// HostMemory returns the total installed memory in bytes.
func HostMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

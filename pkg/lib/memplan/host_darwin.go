//go:build darwin

package memplan

import (
	"golang.org/x/sys/unix"
)

// HostMemory returns the total installed memory in bytes.
func HostMemory() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}

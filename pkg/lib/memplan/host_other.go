//go:build !linux && !darwin

package memplan

import "errors"

// HostMemory is not implemented on this platform; the planner then skips
// clamping.
func HostMemory() (uint64, error) {
	return 0, errors.New("host memory query not supported on this platform")
}

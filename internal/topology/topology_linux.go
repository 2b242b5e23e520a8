//go:build linux
// +build linux

package topology

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// numCPUPlatform counts the CPUs in the affinity mask of the process.
func numCPUPlatform() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	return set.Count()
}

// Package topology reports the CPUs available to this process. It only
// provides the default CPU count of a simulation.
package topology

// NumCPU returns the number of CPUs this process may run on, never less
// than 1.
func NumCPU() int {
	n := numCPUPlatform()
	if n < 1 {
		return 1
	}
	return n
}

//go:build !linux
// +build !linux

package topology

import "runtime"

func numCPUPlatform() int {
	return runtime.NumCPU()
}

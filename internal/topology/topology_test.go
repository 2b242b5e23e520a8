package topology

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumCPU(t *testing.T) {
	n := NumCPU()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, runtime.NumCPU())
}

package sched

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
)

// CPUSet is an immutable, ordered set of CPU ids. Enumeration is ascending,
// which makes every scan over it deterministic. The zero value is empty.
type CPUSet struct {
	set *treeset.Set
}

// NewCPUSet builds a set from the given ids. Negative ids are ignored.
func NewCPUSet(cpus ...int) CPUSet {
	s := treeset.NewWithIntComparator()
	for _, c := range cpus {
		if c >= 0 {
			s.Add(c)
		}
	}
	return CPUSet{set: s}
}

// RangeCPUSet returns {0, ..., n-1}.
func RangeCPUSet(n int) CPUSet {
	cpus := make([]int, 0, n)
	for i := 0; i < n; i++ {
		cpus = append(cpus, i)
	}
	return NewCPUSet(cpus...)
}

// Len returns the number of CPUs in the set.
func (c CPUSet) Len() int {
	if c.set == nil {
		return 0
	}
	return c.set.Size()
}

// Empty reports whether the set holds no CPU.
func (c CPUSet) Empty() bool { return c.Len() == 0 }

// Contains reports whether cpu is in the set.
func (c CPUSet) Contains(cpu int) bool {
	return c.set != nil && c.set.Contains(cpu)
}

// First returns the lowest CPU id, or -1 when empty.
func (c CPUSet) First() int {
	if c.Len() == 0 {
		return -1
	}
	it := c.set.Iterator()
	it.First()
	return it.Value().(int)
}

// CPUs returns the ids in ascending order.
func (c CPUSet) CPUs() []int {
	if c.set == nil {
		return nil
	}
	out := make([]int, 0, c.set.Size())
	c.set.Each(func(_ int, v interface{}) {
		out = append(out, v.(int))
	})
	return out
}

// Intersect returns the CPUs present in both sets.
func (c CPUSet) Intersect(o CPUSet) CPUSet {
	if c.set == nil || o.set == nil {
		return CPUSet{}
	}
	return CPUSet{set: c.set.Intersection(o.set)}
}

func (c CPUSet) String() string {
	cpus := c.CPUs()
	parts := make([]string, len(cpus))
	for i, cpu := range cpus {
		parts[i] = fmt.Sprint(cpu)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

package sched

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// RunQueue is the WRR run queue of one CPU. Insertion order is scheduling
// order; the head is the task running on the CPU when it belongs to this
// class.
//
// Every mutating hook expects the caller (the host framework) to hold the
// queue through Lock/Unlock. Readers on other CPUs go through Snapshot,
// which takes the read side only.
type RunQueue struct {
	cpu int

	mu        sync.RWMutex
	tasks     *doublylinkedlist.List
	nrRunning int

	weight atomic.Int64 // last computed load, see Load
}

// NewRunQueue creates the empty run queue of cpu.
func NewRunQueue(cpu int) *RunQueue {
	return &RunQueue{
		cpu:   cpu,
		tasks: doublylinkedlist.New(),
	}
}

// CPU returns the CPU this queue belongs to.
func (rq *RunQueue) CPU() int { return rq.cpu }

// Lock acquires the run-queue lock for a hook invocation.
func (rq *RunQueue) Lock() { rq.mu.Lock() }

// Unlock releases the run-queue lock.
func (rq *RunQueue) Unlock() { rq.mu.Unlock() }

// NrRunning returns the number of queued tasks. Caller holds the lock.
func (rq *RunQueue) NrRunning() int { return rq.nrRunning }

// Len returns the length of the task list. Caller holds the lock.
func (rq *RunQueue) Len() int { return rq.tasks.Size() }

// Head returns the first queued task, or nil. Caller holds the lock.
func (rq *RunQueue) Head() *Task {
	v, ok := rq.tasks.Get(0)
	if !ok {
		return nil
	}
	return v.(*Task)
}

// Tasks returns the queued tasks in order. Caller holds the lock.
func (rq *RunQueue) Tasks() []*Task {
	out := make([]*Task, 0, rq.tasks.Size())
	rq.tasks.Each(func(_ int, v interface{}) {
		out = append(out, v.(*Task))
	})
	return out
}

// Snapshot copies the queued tasks and the counter under the read lock. It is
// the only access path for code running on behalf of another CPU.
func (rq *RunQueue) Snapshot() ([]*Task, int) {
	rq.mu.RLock()
	defer rq.mu.RUnlock()
	return rq.Tasks(), rq.nrRunning
}

// Weight returns the load computed by the last Load call on this queue.
func (rq *RunQueue) Weight() int64 { return rq.weight.Load() }

func (rq *RunQueue) link(t *Task, head bool) {
	if head {
		rq.tasks.Prepend(t)
	} else {
		rq.tasks.Append(t)
	}
	t.rq = rq
	rq.nrRunning++
}

func (rq *RunQueue) unlink(t *Task) bool {
	idx := rq.tasks.IndexOf(t)
	if idx < 0 {
		return false
	}
	rq.tasks.Remove(idx)
	t.rq = nil
	rq.nrRunning--
	return true
}

func (rq *RunQueue) move(t *Task, head bool) bool {
	idx := rq.tasks.IndexOf(t)
	if idx < 0 {
		return false
	}
	rq.tasks.Remove(idx)
	if head {
		rq.tasks.Prepend(t)
	} else {
		rq.tasks.Append(t)
	}
	return true
}

// consistent reports whether the counter agrees with the list.
func (rq *RunQueue) consistent() bool {
	return rq.nrRunning == rq.tasks.Size()
}

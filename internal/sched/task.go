package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// Unlimited marks an rlimit without a ceiling.
const Unlimited time.Duration = -1

// Rlimit is a soft/hard CPU-time ceiling.
type Rlimit struct {
	Soft time.Duration
	Hard time.Duration
}

// NoLimit is the rlimit of a task without a CPU-time ceiling.
var NoLimit = Rlimit{Soft: Unlimited, Hard: Unlimited}

// Task is one schedulable entity. The scheduling fields are owned by the run
// queue the task is linked into and must only be touched under that queue's
// lock. Group, affinity and the reschedule flag may be read from any context.
type Task struct {
	ID   TaskID
	Name string

	mu      sync.RWMutex
	group   string // cgroup-like path, input of the classifier
	allowed CPUSet // empty means any CPU
	rlimit  Rlimit

	needResched atomic.Bool
	cpu         atomic.Int64 // CPU the task last ran or was placed on

	// scheduling entity, guarded by the run-queue lock
	rq          *RunQueue
	timeSlice   int64 // remaining ticks
	timeout     int64 // watchdog ticks against the soft limit
	limitFired  bool
	execStart   int64 // clock value of the last accounting point
	sumExec     int64 // accumulated runtime, clock units
	execMax     int64
	cpuTimerExp int64 // accumulated runtime at the last limit expiry
}

// NewTask creates a task in the given group with no affinity restriction and
// no CPU-time limit. The slice is zero; it is filled when the task enters the
// class.
func NewTask(id TaskID, name, group string) *Task {
	return &Task{
		ID:     id,
		Name:   name,
		group:  group,
		rlimit: NoLimit,
	}
}

// Group returns the task's group path.
func (t *Task) Group() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.group
}

// SetGroup moves the task to another group. The new class is picked up at the
// next slice refill and the next load computation.
func (t *Task) SetGroup(group string) {
	t.mu.Lock()
	t.group = group
	t.mu.Unlock()
}

// Allowed returns the CPUs the task may run on. An empty set means any.
func (t *Task) Allowed() CPUSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowed
}

// SetAllowed restricts the task to the given CPUs.
func (t *Task) SetAllowed(cpus ...int) {
	set := NewCPUSet(cpus...)
	t.mu.Lock()
	t.allowed = set
	t.mu.Unlock()
}

// Rlimit returns the task's CPU-time limit.
func (t *Task) Rlimit() Rlimit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rlimit
}

// SetRlimit sets the task's CPU-time limit.
func (t *Task) SetRlimit(l Rlimit) {
	t.mu.Lock()
	t.rlimit = l
	t.mu.Unlock()
}

// CPU returns the CPU the task was last placed on.
func (t *Task) CPU() int { return int(t.cpu.Load()) }

// SetCPU records the CPU the task is placed on.
func (t *Task) SetCPU(cpu int) { t.cpu.Store(int64(cpu)) }

// NeedResched reports whether the task has been asked to give up the CPU.
func (t *Task) NeedResched() bool { return t.needResched.Load() }

// ClearNeedResched resets the reschedule flag after a context switch.
func (t *Task) ClearNeedResched() { t.needResched.Store(false) }

// SetNeedResched asks the task to give up the CPU at the next switch point.
func (t *Task) SetNeedResched() { t.needResched.Store(true) }

// RunQueue returns the run queue the task is linked into, or nil.
func (t *Task) RunQueue() *RunQueue { return t.rq }

// TimeSlice returns the remaining slice in ticks.
func (t *Task) TimeSlice() int64 { return t.timeSlice }

// Timeout returns the watchdog counter.
func (t *Task) Timeout() int64 { return t.timeout }

// SumExecRuntime returns the accumulated runtime in clock units.
func (t *Task) SumExecRuntime() int64 { return t.sumExec }

// ExecMax returns the longest single accounting delta seen.
func (t *Task) ExecMax() int64 { return t.execMax }

// ExecStart returns the clock value of the last accounting point.
func (t *Task) ExecStart() int64 { return t.execStart }

// CPUTimerExpires returns the runtime recorded at the last limit expiry, or 0.
func (t *Task) CPUTimerExpires() int64 { return t.cpuTimerExp }

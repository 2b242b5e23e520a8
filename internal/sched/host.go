package sched

import "time"

// Host is the enclosing scheduler framework as seen from the WRR class. It
// owns the run-queue table, the current task of every CPU, the clock and
// the context switch itself.
type Host interface {
	// Clock is the monotonic task clock, in the unit of Task.ExecStart.
	Clock() int64
	// TickDuration is the length of one scheduler tick (1/HZ).
	TickDuration() time.Duration
	// RunQueue returns the run queue of cpu, or nil for an unknown CPU.
	RunQueue(cpu int) *RunQueue
	// OnlineCPUs returns the CPUs currently online.
	OnlineCPUs() CPUSet
	// Current returns the task running on cpu, or nil when idle.
	Current(cpu int) *Task
	// Resched marks t as needing a reschedule before returning to it.
	Resched(t *Task)
	// AddNrRunning adjusts the CPU-wide runnable count.
	AddNrRunning(cpu, delta int)
	// CPUTimeExpired notifies that t has gone past its CPU-time limit.
	CPUTimeExpired(t *Task)
}

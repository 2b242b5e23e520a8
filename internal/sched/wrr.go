// internal/sched/wrr.go

package sched

import (
	"log/slog"
)

// EnqueueFlags qualify an enqueue.
type EnqueueFlags int

const (
	// EnqueueWakeup marks a fresh wake-up; the watchdog counter is reset.
	// Without it the task keeps its counters (migration, class switch).
	EnqueueWakeup EnqueueFlags = 1 << iota
	// EnqueueHead inserts at the front instead of the back.
	EnqueueHead
)

// DequeueFlags qualify a dequeue.
type DequeueFlags int

const (
	DequeueSleep DequeueFlags = 1 << iota
)

// SelectFlags qualify a CPU selection.
type SelectFlags int

const (
	SelectWakeup SelectFlags = 1 << iota
	SelectFork
)

// Class is the capability set the host framework drives a scheduling class
// through. Every hook taking a RunQueue is called with that queue locked.
type Class interface {
	Name() string
	Enqueue(rq *RunQueue, t *Task, flags EnqueueFlags)
	Dequeue(rq *RunQueue, t *Task, flags DequeueFlags)
	Yield(rq *RunQueue)
	CheckPreemptCurr(rq *RunQueue, t *Task, flags EnqueueFlags)
	PickNext(rq *RunQueue) *Task
	PutPrev(rq *RunQueue, t *Task)
	SelectCPU(t *Task, flags SelectFlags) int
	SetCurrent(rq *RunQueue)
	Tick(rq *RunQueue, t *Task, queued bool)
	PrioChanged(rq *RunQueue, t *Task, oldPrio int)
	SwitchedTo(rq *RunQueue, t *Task)
	TimeSlice(t *Task) int64
}

// Options configure a WRR class.
type Options struct {
	Policy     Policy
	Classifier Classifier
	Logger     *slog.Logger
	// Strict turns invariant failures into panics.
	Strict bool
}

// WRR is the weighted round-robin scheduling class.
type WRR struct {
	host   Host
	policy Policy
	oracle Classifier
	log    *slog.Logger
	strict bool
}

var _ Class = (*WRR)(nil)

// New creates the WRR class bound to host.
func New(host Host, opts Options) *WRR {
	w := &WRR{
		host:   host,
		policy: opts.Policy,
		oracle: opts.Classifier,
		log:    opts.Logger,
		strict: opts.Strict,
	}
	if w.policy.BaseTimeslice <= 0 {
		w.policy = NewPolicy(DefaultTimeslice)
	}
	if w.oracle == nil {
		w.oracle = &GroupClassifier{}
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// Name implements Class.
func (w *WRR) Name() string { return "wrr" }

// Policy returns the weight/slice policy in use.
func (w *WRR) Policy() Policy { return w.policy }

// Classify returns the weight class of t. It never fails; a task the oracle
// cannot place is weighted as background.
func (w *WRR) Classify(t *Task) WeightClass {
	c := w.oracle.Classify(t)
	switch c {
	case Foreground, Background, Other:
		return c
	default:
		return Background
	}
}

// TimeSlice returns the full slice of t's current class. It has no side
// effects.
func (w *WRR) TimeSlice(t *Task) int64 {
	return w.policy.SliceTicks(w.Classify(t))
}

// Enqueue links t into rq.
func (w *WRR) Enqueue(rq *RunQueue, t *Task, flags EnqueueFlags) {
	if t.rq != nil {
		w.invariant(ErrAlreadyQueued, rq, t)
		return
	}
	if flags&EnqueueWakeup != 0 {
		t.timeout = 0
		t.limitFired = false
	}
	if t.timeSlice <= 0 {
		t.timeSlice = w.TimeSlice(t)
	}

	rq.link(t, flags&EnqueueHead != 0)
	t.SetCPU(rq.cpu)
	w.host.AddNrRunning(rq.cpu, 1)
}

// Dequeue charges the running task and unlinks t from rq.
func (w *WRR) Dequeue(rq *RunQueue, t *Task, flags DequeueFlags) {
	w.updateCurr(rq)

	if t.rq != rq || !rq.unlink(t) {
		w.invariant(ErrNotQueued, rq, t)
		return
	}
	w.host.AddNrRunning(rq.cpu, -1)
}

// Requeue moves an already queued task to the front or back of rq.
func (w *WRR) Requeue(rq *RunQueue, t *Task, head bool) {
	if t.rq != rq || !rq.move(t, head) {
		w.invariant(ErrNotQueued, rq, t)
	}
}

// Yield sends the running task to the back of its queue with its remaining
// slice intact.
func (w *WRR) Yield(rq *RunQueue) {
	curr := w.host.Current(rq.cpu)
	if curr == nil || curr.rq != rq {
		return
	}
	w.Requeue(rq, curr, false)
}

// CheckPreemptCurr is a no-op: a newly queued WRR task never preempts the
// running one, which keeps the CPU until its slice runs out or it yields.
func (w *WRR) CheckPreemptCurr(rq *RunQueue, t *Task, flags EnqueueFlags) {}

// PickNext returns the head of rq without removing it, or nil.
func (w *WRR) PickNext(rq *RunQueue) *Task {
	if !rq.consistent() {
		w.invariant(ErrCountMismatch, rq, nil)
	}
	if rq.nrRunning == 0 || rq.tasks.Empty() {
		return nil
	}

	p := rq.Head()
	if p == nil {
		return nil
	}
	p.execStart = w.host.Clock()
	return p
}

// PutPrev charges the task being switched out.
func (w *WRR) PutPrev(rq *RunQueue, t *Task) {
	w.updateCurr(rq)
}

// SetCurrent stamps the exec start of the task about to run.
func (w *WRR) SetCurrent(rq *RunQueue) {
	if curr := w.host.Current(rq.cpu); curr != nil {
		curr.execStart = w.host.Clock()
	}
}

// Tick is the periodic timer hook for the running task t.
func (w *WRR) Tick(rq *RunQueue, t *Task, queued bool) {
	w.updateCurr(rq)
	w.watchdog(t)

	t.timeSlice--
	if t.timeSlice > 0 {
		return
	}
	t.timeSlice = w.TimeSlice(t)

	if rq.Len() > 1 {
		w.Requeue(rq, t, false)
		w.host.Resched(t)
	}
}

// PrioChanged is a no-op; the weight class is re-derived, not stored.
func (w *WRR) PrioChanged(rq *RunQueue, t *Task, oldPrio int) {}

// SwitchedTo handles t becoming a WRR task.
func (w *WRR) SwitchedTo(rq *RunQueue, t *Task) {
	if t.timeSlice <= 0 {
		t.timeSlice = w.TimeSlice(t)
	}
	if t.rq != rq {
		return
	}
	if curr := w.host.Current(rq.cpu); curr != nil && curr != t {
		w.host.Resched(curr)
	}
}

// updateCurr charges the time since the last accounting point to the task
// running on rq. It is the only writer of the runtime counters.
func (w *WRR) updateCurr(rq *RunQueue) {
	curr := w.host.Current(rq.cpu)
	if curr == nil || curr.rq != rq {
		return
	}

	now := w.host.Clock()
	delta := now - curr.execStart
	if delta < 0 {
		delta = 0
	}
	if delta > curr.execMax {
		curr.execMax = delta
	}
	curr.sumExec += delta
	curr.execStart = now
}

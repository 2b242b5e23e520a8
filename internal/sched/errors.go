package sched

import (
	"errors"
	"fmt"
)

// Contract violations. No hook returns these; they are raised as panics in
// strict mode and logged otherwise.
var (
	ErrNotQueued     = errors.New("task is not queued on this run queue")
	ErrAlreadyQueued = errors.New("task is already queued")
	ErrCountMismatch = errors.New("run-queue counter does not match task list")
)

// invariant reports a broken internal invariant.
func (w *WRR) invariant(err error, rq *RunQueue, t *Task) {
	args := []any{"error", err}
	if rq != nil {
		args = append(args, "cpu", rq.cpu, "nr_running", rq.nrRunning, "list_len", rq.tasks.Size())
	}
	if t != nil {
		args = append(args, "task", t.ID)
	}
	if w.strict {
		panic(fmt.Errorf("wrr: %w", err))
	}
	w.log.Error("wrr: invariant failure", args...)
}

package sched

// Load returns the weighted load of rq: the sum of the full slices of every
// queued task's current class. It is computed fresh on every call from a
// snapshot taken under the queue's read lock, so it must not be called while
// holding any run-queue lock. The result is also cached on the queue.
func (w *WRR) Load(rq *RunQueue) int64 {
	tasks, _ := rq.Snapshot()

	var load int64
	for _, t := range tasks {
		load += w.TimeSlice(t)
	}
	rq.weight.Store(load)
	return load
}

// SelectCPU picks the CPU a waking or new task is placed on: its only allowed
// CPU when pinned, otherwise the online, allowed CPU with the smallest load.
// Ties go to the lowest CPU id. Queues are read one at a time, so the choice
// may be slightly stale under concurrent mutation.
func (w *WRR) SelectCPU(t *Task, flags SelectFlags) int {
	allowed := t.Allowed()
	if allowed.Len() == 1 {
		return allowed.First()
	}

	target := t.CPU()
	var minLoad int64 = -1
	for _, cpu := range w.host.OnlineCPUs().CPUs() {
		if !allowed.Empty() && !allowed.Contains(cpu) {
			continue
		}
		rq := w.host.RunQueue(cpu)
		if rq == nil {
			continue
		}
		load := w.Load(rq)
		if minLoad < 0 || load < minLoad {
			minLoad = load
			target = cpu
		}
	}
	if minLoad < 0 {
		w.log.Warn("wrr: no online cpu to select from", "task", t.ID, "fallback", target)
	}
	return target
}

package sched

// Info is a point-in-time view of every online run queue.
type Info struct {
	NumCPUs     int
	CPUs        []int
	NrRunning   []int
	TotalWeight []int64
}

// Info collects the queued task count and load of every online CPU. Each
// queue is read under its own read lock; the result is not an atomic
// snapshot of the whole machine.
func (w *WRR) Info() Info {
	cpus := w.host.OnlineCPUs().CPUs()
	info := Info{
		NumCPUs:     len(cpus),
		CPUs:        make([]int, 0, len(cpus)),
		NrRunning:   make([]int, 0, len(cpus)),
		TotalWeight: make([]int64, 0, len(cpus)),
	}
	for _, cpu := range cpus {
		rq := w.host.RunQueue(cpu)
		if rq == nil {
			continue
		}
		tasks, nr := rq.Snapshot()

		var load int64
		for _, t := range tasks {
			load += w.TimeSlice(t)
		}
		rq.weight.Store(load)

		info.CPUs = append(info.CPUs, cpu)
		info.NrRunning = append(info.NrRunning, nr)
		info.TotalWeight = append(info.TotalWeight, load)
	}
	info.NumCPUs = len(info.CPUs)
	return info
}

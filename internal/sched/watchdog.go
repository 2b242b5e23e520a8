package sched

import "time"

// LimitTicks converts the effective ceiling of l (the smaller of soft and
// hard) into ticks, rounding up. ok is false when there is no soft limit.
func LimitTicks(l Rlimit, tick time.Duration) (ticks int64, ok bool) {
	if l.Soft < 0 {
		return 0, false
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	limit := l.Soft
	if l.Hard >= 0 && l.Hard < limit {
		limit = l.Hard
	}
	return int64((limit + tick - 1) / tick), true
}

// watchdog counts ticks against t's CPU-time limit and notifies the host the
// first time the count goes past it. The counter is only reset by a wake-up,
// so a task notifies at most once per crossing.
func (w *WRR) watchdog(t *Task) {
	next, ok := LimitTicks(t.Rlimit(), w.host.TickDuration())
	if !ok {
		return
	}

	t.timeout++
	if t.timeout > next && !t.limitFired {
		t.limitFired = true
		t.cpuTimerExp = t.sumExec
		w.host.CPUTimeExpired(t)
	}
}

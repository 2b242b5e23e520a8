package sched

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeHost is a minimal framework for driving the class directly.
type fakeHost struct {
	mu      sync.Mutex
	clock   int64
	tick    time.Duration
	rqs     []*RunQueue
	online  CPUSet
	curr    map[int]*Task
	nr      map[int]int
	resched []*Task
	expired []*Task
}

func newFakeHost(ncpu int) *fakeHost {
	h := &fakeHost{
		tick:   time.Millisecond,
		online: RangeCPUSet(ncpu),
		curr:   make(map[int]*Task),
		nr:     make(map[int]int),
	}
	for i := 0; i < ncpu; i++ {
		h.rqs = append(h.rqs, NewRunQueue(i))
	}
	return h
}

func (h *fakeHost) Clock() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

func (h *fakeHost) advance(d int64) {
	h.mu.Lock()
	h.clock += d
	h.mu.Unlock()
}

func (h *fakeHost) TickDuration() time.Duration { return h.tick }

func (h *fakeHost) RunQueue(cpu int) *RunQueue {
	if cpu < 0 || cpu >= len(h.rqs) {
		return nil
	}
	return h.rqs[cpu]
}

func (h *fakeHost) OnlineCPUs() CPUSet { return h.online }

func (h *fakeHost) Current(cpu int) *Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.curr[cpu]
}

func (h *fakeHost) setCurrent(cpu int, t *Task) {
	h.mu.Lock()
	h.curr[cpu] = t
	h.mu.Unlock()
}

func (h *fakeHost) Resched(t *Task) {
	h.mu.Lock()
	h.resched = append(h.resched, t)
	h.mu.Unlock()
	t.SetNeedResched()
}

func (h *fakeHost) AddNrRunning(cpu, delta int) {
	h.mu.Lock()
	h.nr[cpu] += delta
	h.mu.Unlock()
}

func (h *fakeHost) CPUTimeExpired(t *Task) {
	h.mu.Lock()
	h.expired = append(h.expired, t)
	h.mu.Unlock()
}

func newTestClass(t *testing.T, h Host, strict bool) (*WRR, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(h, Options{
		Policy:     NewPolicy(10),
		Classifier: NewGroupClassifier(nil, nil),
		Logger:     log,
		Strict:     strict,
	}), &buf
}

func fg(id TaskID) *Task { return NewTask(id, "fg", RootGroup) }
func bg(id TaskID) *Task { return NewTask(id, "bg", BackgroundGroupDir) }

func ids(tasks []*Task) []TaskID {
	out := make([]TaskID, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

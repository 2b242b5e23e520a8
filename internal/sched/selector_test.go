package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill queues n background tasks on each CPU, giving a load of 10*n.
func fill(w *WRR, h *fakeHost, counts ...int) {
	id := TaskID(1000)
	for cpu, n := range counts {
		for i := 0; i < n; i++ {
			id++
			w.Enqueue(h.rqs[cpu], bg(id), 0)
		}
	}
}

func TestWRR_Load(t *testing.T) {
	h := newFakeHost(1)
	w, _ := newTestClass(t, h, true)
	rq := h.rqs[0]

	assert.EqualValues(t, 0, w.Load(rq))

	w.Enqueue(rq, fg(1), 0)
	w.Enqueue(rq, bg(2), 0)
	w.Enqueue(rq, NewTask(3, "o", "/elsewhere"), 0)
	assert.EqualValues(t, 120, w.Load(rq))
	assert.EqualValues(t, 120, rq.Weight())

	// reclassification shows up on the next computation
	rq.Tasks()[0].SetGroup(BackgroundGroupDir)
	assert.EqualValues(t, 30, w.Load(rq))
}

func TestWRR_SelectCPU(t *testing.T) {
	testCases := []struct {
		description string
		counts      []int
		online      []int
		allowed     []int
		lastCPU     int
		expect      int
	}{
		{description: "least loaded", counts: []int{3, 1, 2}, expect: 1},
		{description: "tie goes to first", counts: []int{2, 1, 1}, expect: 1},
		{description: "all empty", counts: []int{0, 0, 0}, lastCPU: 2, expect: 0},
		{description: "pinned ignores load", counts: []int{5, 0, 0}, allowed: []int{0}, expect: 0},
		{description: "pinned to offline cpu", counts: []int{0, 0, 0}, online: []int{0, 1}, allowed: []int{2}, expect: 2},
		{description: "allowed subset", counts: []int{3, 1, 2}, allowed: []int{0, 2}, expect: 2},
		{description: "offline skipped", counts: []int{3, 1, 2}, online: []int{0, 2}, expect: 2},
		{description: "no online cpu falls back", counts: []int{0, 0, 0}, online: []int{}, lastCPU: 2, expect: 2},
		{description: "allowed all offline falls back", counts: []int{0, 0, 0}, online: []int{0}, allowed: []int{1, 2}, lastCPU: 1, expect: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			h := newFakeHost(len(tc.counts))
			if tc.online != nil {
				h.online = NewCPUSet(tc.online...)
			}
			w, _ := newTestClass(t, h, true)
			fill(w, h, tc.counts...)

			task := fg(1)
			task.SetCPU(tc.lastCPU)
			if tc.allowed != nil {
				task.SetAllowed(tc.allowed...)
			}
			assert.Equal(t, tc.expect, w.SelectCPU(task, SelectWakeup))
		})
	}
}

func TestWRR_SelectCPUWeighted(t *testing.T) {
	h := newFakeHost(2)
	w, _ := newTestClass(t, h, true)

	// one foreground task outweighs nine background ones
	w.Enqueue(h.rqs[0], fg(1), 0)
	fill(w, h, 0, 9)
	assert.Equal(t, 1, w.SelectCPU(bg(2), SelectFork))

	w.Enqueue(h.rqs[1], bg(3), 0)
	w.Enqueue(h.rqs[1], bg(4), 0)
	assert.Equal(t, 0, w.SelectCPU(bg(5), SelectFork))
}

func TestWRR_SelectCPUConcurrent(t *testing.T) {
	const ncpu = 4
	h := newFakeHost(ncpu)
	w, _ := newTestClass(t, h, true)

	var wg sync.WaitGroup
	for cpu := 0; cpu < ncpu; cpu++ {
		wg.Add(1)
		go func(cpu int) {
			defer wg.Done()
			rq := h.rqs[cpu]
			var mine []*Task
			for i := 0; i < 500; i++ {
				rq.Lock()
				if i%3 == 2 && len(mine) > 0 {
					w.Dequeue(rq, mine[0], 0)
					mine = mine[1:]
				} else {
					task := NewTask(TaskID(cpu*10000+i), "t", []string{RootGroup, BackgroundGroupDir}[i%2])
					w.Enqueue(rq, task, EnqueueWakeup)
					mine = append(mine, task)
				}
				rq.Unlock()
			}
		}(cpu)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				task := bg(TaskID(90000 + i))
				cpu := w.SelectCPU(task, SelectWakeup)
				if cpu < 0 || cpu >= ncpu {
					t.Errorf("selected cpu %d out of range", cpu)
					return
				}
				_ = w.Info()
			}
		}()
	}
	wg.Wait()

	for _, rq := range h.rqs {
		require.Equal(t, rq.Len(), rq.NrRunning())
	}
}

func TestWRR_Info(t *testing.T) {
	h := newFakeHost(3)
	h.online = NewCPUSet(0, 2)
	w, _ := newTestClass(t, h, true)
	fill(w, h, 2, 1, 0)
	w.Enqueue(h.rqs[2], fg(1), 0)

	info := w.Info()
	assert.Equal(t, 2, info.NumCPUs)
	assert.Equal(t, []int{0, 2}, info.CPUs)
	assert.Equal(t, []int{2, 1}, info.NrRunning)
	assert.Equal(t, []int64{20, 100}, info.TotalWeight)
}

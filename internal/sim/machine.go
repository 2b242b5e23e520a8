// internal/sim/machine.go

package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"wrrsched/internal/job"
	"wrrsched/internal/sched"
)

// ProcState is the lifecycle state of a simulated task.
type ProcState int

const (
	Runnable ProcState = iota
	Sleeping
	Exited
)

func (s ProcState) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Sleeping:
		return "sleeping"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Proc is a simulated task: the scheduling entity plus its workload.
type Proc struct {
	*sched.Task
	Spec job.Spec

	State  ProcState
	Ran    int64 // ticks on a CPU
	Waited int64 // ticks queued behind another task
	Limits int   // CPU-time limit notifications

	sinceIO int64
	wakeAt  int64
	killed  bool
}

// Options configure a Machine.
type Options struct {
	CPUs             int
	Online           sched.CPUSet // empty = all CPUs
	Tick             time.Duration
	BaseTimeslice    int64
	ForegroundGroups []string
	BackgroundGroups []string
	Strict           bool
	KillOnLimit      bool
	Logger           *slog.Logger
}

// Machine is the simulated scheduler framework. It owns one run queue per
// CPU, the current task of every CPU and the clock, takes the run-queue lock
// around every hook and performs the context switches the WRR class asks
// for. It implements sched.Host.
type Machine struct {
	opts   Options
	log    *slog.Logger
	class  *sched.WRR
	oracle *sched.GroupClassifier
	rqs    []*sched.RunQueue
	online sched.CPUSet

	mu   sync.Mutex // guards curr; taken after a run-queue lock, never before
	curr []*sched.Task

	nr    []atomic.Int64
	clock atomic.Int64

	// framework state, serialized by stepMu
	stepMu   sync.Mutex
	tick     int64
	nextID   sched.TaskID
	procs    map[sched.TaskID]*Proc
	order    []*Proc
	backlog  *queue.Queue // job.Spec ordered by arrival tick
	sleepMu  sync.Mutex
	sleepers []*Proc
	busy     []int64
	loadSum  []int64

	emitMu      sync.Mutex
	subscribers map[int]func(StatusEvent)
	nextSub     int
}

var _ sched.Host = (*Machine)(nil)

// New creates a machine with opts.CPUs run queues.
func New(opts Options) *Machine {
	if opts.CPUs <= 0 {
		opts.CPUs = 1
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	online := opts.Online.Intersect(sched.RangeCPUSet(opts.CPUs))
	if online.Empty() {
		online = sched.RangeCPUSet(opts.CPUs)
	}

	m := &Machine{
		opts:        opts,
		log:         opts.Logger,
		oracle:      sched.NewGroupClassifier(opts.ForegroundGroups, opts.BackgroundGroups),
		online:      online,
		curr:        make([]*sched.Task, opts.CPUs),
		nr:          make([]atomic.Int64, opts.CPUs),
		nextID:      1,
		procs:       make(map[sched.TaskID]*Proc),
		backlog:     queue.New(),
		busy:        make([]int64, opts.CPUs),
		loadSum:     make([]int64, opts.CPUs),
		subscribers: make(map[int]func(StatusEvent)),
	}
	for cpu := 0; cpu < opts.CPUs; cpu++ {
		m.rqs = append(m.rqs, sched.NewRunQueue(cpu))
	}
	m.class = sched.New(m, sched.Options{
		Policy:     sched.NewPolicy(opts.BaseTimeslice),
		Classifier: m.oracle,
		Logger:     opts.Logger,
		Strict:     opts.Strict,
	})
	return m
}

// Class returns the WRR class driven by the machine.
func (m *Machine) Class() *sched.WRR { return m.class }

// Clock implements sched.Host.
func (m *Machine) Clock() int64 { return m.clock.Load() }

// TickDuration implements sched.Host.
func (m *Machine) TickDuration() time.Duration { return m.opts.Tick }

// RunQueue implements sched.Host.
func (m *Machine) RunQueue(cpu int) *sched.RunQueue {
	if cpu < 0 || cpu >= len(m.rqs) {
		return nil
	}
	return m.rqs[cpu]
}

// OnlineCPUs implements sched.Host.
func (m *Machine) OnlineCPUs() sched.CPUSet { return m.online }

// Current implements sched.Host.
func (m *Machine) Current(cpu int) *sched.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cpu < 0 || cpu >= len(m.curr) {
		return nil
	}
	return m.curr[cpu]
}

func (m *Machine) setCurrent(cpu int, t *sched.Task) {
	m.mu.Lock()
	m.curr[cpu] = t
	m.mu.Unlock()
}

// Resched implements sched.Host.
func (m *Machine) Resched(t *sched.Task) { t.SetNeedResched() }

// AddNrRunning implements sched.Host.
func (m *Machine) AddNrRunning(cpu, delta int) {
	if cpu >= 0 && cpu < len(m.nr) {
		m.nr[cpu].Add(int64(delta))
	}
}

// CPUTimeExpired implements sched.Host. The task is terminated at the end
// of the tick when KillOnLimit is set.
func (m *Machine) CPUTimeExpired(t *sched.Task) {
	p, ok := m.procs[t.ID]
	if !ok {
		return
	}
	p.Limits++
	if m.opts.KillOnLimit {
		p.killed = true
	}
	m.log.Debug("cpu time limit exceeded", "task", t.ID, "runtime", time.Duration(t.SumExecRuntime()))
	m.emit(p, StatusLimit, t.CPU())
}

// NrRunning returns the runnable count the class reported for cpu.
func (m *Machine) NrRunning(cpu int) int {
	if cpu < 0 || cpu >= len(m.nr) {
		return 0
	}
	return int(m.nr[cpu].Load())
}

// Ticks returns the number of simulated ticks.
func (m *Machine) Ticks() int64 {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	return m.tick
}

// Proc returns the simulated task with the given id.
func (m *Machine) Proc(id sched.TaskID) (*Proc, bool) {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	p, ok := m.procs[id]
	return p, ok
}

// Procs returns every task spawned so far, in creation order.
func (m *Machine) Procs() []*Proc {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	return append([]*Proc(nil), m.order...)
}

// Subscribe registers fn for every event and returns a function removing it.
// fn may be called from several goroutines, one at a time.
func (m *Machine) Subscribe(fn func(StatusEvent)) func() {
	m.emitMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.emitMu.Unlock()

	return func() {
		m.emitMu.Lock()
		delete(m.subscribers, id)
		m.emitMu.Unlock()
	}
}

func (m *Machine) emit(p *Proc, kind StatusKind, cpu int) {
	ev := StatusEvent{
		Clock: time.Duration(m.clock.Load()),
		Tick:  m.tick,
		Kind:  kind,
		CPU:   cpu,
	}
	if p != nil {
		ev.TaskID = p.ID
		ev.Task = p.Name
		ev.Class = m.class.Classify(p.Task)
		ev.Slice = p.TimeSlice()
		ev.RanTicks = p.Ran
	}

	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	for _, fn := range m.subscribers {
		fn(ev)
	}
}

// Submit queues specs for arrival at their Arrive tick. Specs whose tick has
// already passed arrive on the next step.
func (m *Machine) Submit(specs ...job.Spec) error {
	resolved := make([]job.Spec, 0, len(specs))
	for _, s := range specs {
		r, err := s.Resolve()
		if err != nil {
			return err
		}
		resolved = append(resolved, r)
	}

	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	pending := make([]job.Spec, 0, m.backlog.Length()+len(resolved))
	for m.backlog.Length() > 0 {
		pending = append(pending, m.backlog.Remove().(job.Spec))
	}
	pending = append(pending, resolved...)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Arrive < pending[j].Arrive })
	for _, s := range pending {
		m.backlog.Add(s)
	}
	return nil
}

// Spawn creates a task now, places it through the CPU selector and enqueues
// it. Count is ignored.
func (m *Machine) Spawn(spec job.Spec) (*Proc, error) {
	spec, err := spec.Resolve()
	if err != nil {
		return nil, err
	}
	m.stepMu.Lock()
	defer m.stepMu.Unlock()
	return m.spawn(spec), nil
}

func (m *Machine) spawn(spec job.Spec) *Proc {
	id := m.nextID
	m.nextID++

	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("task-%d", id)
	}
	t := sched.NewTask(id, name, spec.Group)
	if len(spec.CPUs) > 0 {
		t.SetAllowed(spec.CPUs...)
	}
	t.SetRlimit(sched.Rlimit{Soft: spec.SoftLimit(), Hard: spec.HardLimit()})
	t.SetCPU(m.online.First())

	p := &Proc{Task: t, Spec: spec}
	m.procs[id] = p
	m.order = append(m.order, p)

	m.place(p, sched.SelectFork, 0)
	m.emit(p, StatusSpawn, t.CPU())
	return p
}

// place selects a CPU for p and enqueues it there. A selection that is not
// online falls back to an online CPU.
func (m *Machine) place(p *Proc, sf sched.SelectFlags, ef sched.EnqueueFlags) {
	cpu := m.class.SelectCPU(p.Task, sf)
	if !m.online.Contains(cpu) {
		fallback := m.fallbackCPU(p.Task)
		m.log.Warn("selected cpu is offline, falling back", "task", p.ID, "cpu", cpu, "fallback", fallback)
		cpu = fallback
	}
	rq := m.rqs[cpu]

	rq.Lock()
	m.class.Enqueue(rq, p.Task, ef)
	m.class.CheckPreemptCurr(rq, p.Task, ef)
	rq.Unlock()
	p.State = Runnable
}

// fallbackCPU returns the first online CPU t may run on. When its affinity
// has no online CPU left it is ignored and the first online CPU is used.
func (m *Machine) fallbackCPU(t *sched.Task) int {
	if cpu := t.Allowed().Intersect(m.online).First(); cpu >= 0 {
		return cpu
	}
	return m.online.First()
}

// SetGroup moves a task to another group.
func (m *Machine) SetGroup(id sched.TaskID, group string) error {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	p, ok := m.procs[id]
	if !ok {
		return fmt.Errorf("no such task %d", id)
	}
	rq := p.RunQueue()
	if rq == nil {
		p.SetGroup(group)
		return nil
	}
	rq.Lock()
	m.regroup(rq, p, group)
	rq.Unlock()
	return nil
}

// regroup moves a queued task to group. Caller holds the run-queue lock.
func (m *Machine) regroup(rq *sched.RunQueue, p *Proc, group string) {
	from := p.Group()
	p.SetGroup(group)
	m.class.PrioChanged(rq, p.Task, 0)
	m.log.Debug("task regrouped", "task", p.ID, "from", from, "to", group, "class", m.class.Classify(p.Task))
	m.emit(p, StatusRegroup, rq.CPU())
}

// Yield makes the task running on cpu yield.
func (m *Machine) Yield(cpu int) error {
	rq := m.RunQueue(cpu)
	if rq == nil {
		return fmt.Errorf("no such cpu %d", cpu)
	}
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	rq.Lock()
	defer rq.Unlock()
	t := m.Current(cpu)
	if t == nil {
		return nil
	}
	m.yield(rq, t)
	m.schedule(rq)
	return nil
}

// yield sends the running task t to the back of rq and asks for a switch.
// Caller holds the run-queue lock.
func (m *Machine) yield(rq *sched.RunQueue, t *sched.Task) {
	m.class.Yield(rq)
	m.emit(m.procs[t.ID], StatusYield, rq.CPU())
	t.SetNeedResched()
}

// Kill terminates a task.
func (m *Machine) Kill(id sched.TaskID) error {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	p, ok := m.procs[id]
	if !ok {
		return fmt.Errorf("no such task %d", id)
	}
	switch p.State {
	case Exited:
		return nil
	case Sleeping:
		m.sleepMu.Lock()
		for i, s := range m.sleepers {
			if s == p {
				m.sleepers = append(m.sleepers[:i], m.sleepers[i+1:]...)
				break
			}
		}
		m.sleepMu.Unlock()
		p.State = Exited
		m.emit(p, StatusKill, p.CPU())
	default:
		rq := p.RunQueue()
		if rq == nil {
			p.State = Exited
			return nil
		}
		rq.Lock()
		m.exit(rq, p, StatusKill)
		if m.Current(rq.CPU()) == nil {
			m.schedule(rq)
		}
		rq.Unlock()
	}
	return nil
}

// Step simulates one tick on every online CPU. Arrivals, wake-ups and idle
// CPUs are handled first at the current clock; then the clock advances by
// one tick and every CPU runs its current task for that tick in parallel.
func (m *Machine) Step() {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	m.admit()
	m.wake()
	for _, cpu := range m.online.CPUs() {
		rq := m.rqs[cpu]
		rq.Lock()
		if m.Current(cpu) == nil {
			m.schedule(rq)
		}
		rq.Unlock()
	}
	info := m.class.Info()
	for i, cpu := range info.CPUs {
		m.loadSum[cpu] += info.TotalWeight[i]
	}

	m.clock.Add(int64(m.opts.Tick))
	m.tick++

	var wg sync.WaitGroup
	for _, cpu := range m.online.CPUs() {
		wg.Add(1)
		go func(rq *sched.RunQueue) {
			defer wg.Done()
			m.runTick(rq)
		}(m.rqs[cpu])
	}
	wg.Wait()

	m.emit(nil, StatusTick, -1)
}

func (m *Machine) admit() {
	for m.backlog.Length() > 0 {
		s := m.backlog.Peek().(job.Spec)
		if s.Arrive > m.tick {
			return
		}
		m.backlog.Remove()
		for i := 0; i < s.Count; i++ {
			spec := s
			if s.Count > 1 {
				spec.Name = fmt.Sprintf("%s.%d", s.Name, i)
			}
			m.spawn(spec)
		}
	}
}

func (m *Machine) wake() {
	m.sleepMu.Lock()
	var due, rest []*Proc
	for _, p := range m.sleepers {
		if p.wakeAt <= m.tick {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	m.sleepers = rest
	m.sleepMu.Unlock()

	for _, p := range due {
		from := p.CPU()
		m.place(p, sched.SelectWakeup, sched.EnqueueWakeup)
		if from != p.CPU() {
			m.log.Debug("task migrated on wakeup", "task", p.ID, "from", from, "to", p.CPU())
		}
		m.emit(p, StatusWakeup, p.CPU())
	}
}

// runTick charges one tick to the task running on rq and applies its
// workload. Runs on its own goroutine per CPU.
func (m *Machine) runTick(rq *sched.RunQueue) {
	cpu := rq.CPU()
	rq.Lock()
	defer rq.Unlock()

	t := m.Current(cpu)
	if t == nil {
		return
	}
	p := m.procs[t.ID]

	for _, q := range rq.Tasks() {
		if q != t {
			m.procs[q.ID].Waited++
		}
	}

	m.class.Tick(rq, t, true)
	p.Ran++
	p.sinceIO++
	m.busy[cpu]++

	if p.Spec.RegroupAt > 0 && p.Ran == p.Spec.RegroupAt {
		m.regroup(rq, p, p.Spec.RegroupTo)
	}

	switch {
	case p.killed:
		m.exit(rq, p, StatusKill)
	case p.Spec.Burst > 0 && p.Ran >= p.Spec.Burst:
		m.exit(rq, p, StatusFinish)
	case p.Spec.IOEvery > 0 && p.sinceIO >= p.Spec.IOEvery:
		m.sleep(rq, p)
	case t.NeedResched():
		m.emit(p, StatusRequeue, cpu)
	case p.Spec.YieldEvery > 0 && p.Ran%p.Spec.YieldEvery == 0:
		m.yield(rq, t)
	}

	if cur := m.Current(cpu); cur == nil || cur.NeedResched() {
		if m.schedule(rq) == nil {
			m.emit(nil, StatusIdle, cpu)
		}
	}
}

func (m *Machine) exit(rq *sched.RunQueue, p *Proc, kind StatusKind) {
	m.class.Dequeue(rq, p.Task, 0)
	if m.Current(rq.CPU()) == p.Task {
		m.setCurrent(rq.CPU(), nil)
	}
	p.State = Exited
	m.emit(p, kind, rq.CPU())
}

func (m *Machine) sleep(rq *sched.RunQueue, p *Proc) {
	m.class.Dequeue(rq, p.Task, sched.DequeueSleep)
	if m.Current(rq.CPU()) == p.Task {
		m.setCurrent(rq.CPU(), nil)
	}
	p.State = Sleeping
	p.sinceIO = 0
	p.wakeAt = m.tick + p.Spec.IOTicks

	m.sleepMu.Lock()
	m.sleepers = append(m.sleepers, p)
	m.sleepMu.Unlock()
	m.emit(p, StatusSleep, rq.CPU())
}

// schedule switches rq's CPU to the task the class picks and returns it.
// Caller holds the run-queue lock.
func (m *Machine) schedule(rq *sched.RunQueue) *sched.Task {
	cpu := rq.CPU()
	prev := m.Current(cpu)
	if prev != nil {
		m.class.PutPrev(rq, prev)
		prev.ClearNeedResched()
	}

	next := m.class.PickNext(rq)
	m.setCurrent(cpu, next)
	if next == nil {
		return nil
	}
	next.ClearNeedResched()
	m.class.SetCurrent(rq)
	if next != prev {
		m.log.Debug("dispatch", "cpu", cpu, "task", next.ID, "slice", next.TimeSlice())
		m.emit(m.procs[next.ID], StatusDispatch, cpu)
	}
	return next
}

// Run steps the machine ticks times, or until ctx is done, streaming every
// event to handle on the calling goroutine. A positive pace sleeps that long
// between ticks.
func (m *Machine) Run(ctx context.Context, ticks int64, pace time.Duration, handle func(StatusEvent)) error {
	statusCh := make(chan StatusEvent, 256)
	unsubscribe := m.Subscribe(func(ev StatusEvent) { statusCh <- ev })

	go m.loop(ctx, ticks, pace, func() {
		unsubscribe()
		close(statusCh)
	})

	for ev := range statusCh {
		if handle != nil {
			handle(ev)
		}
	}
	return ctx.Err()
}

func (m *Machine) loop(ctx context.Context, ticks int64, pace time.Duration, done func()) {
	var clock *TickClock
	if pace > 0 {
		clock = NewTickClock(pace, 1)
		clock.Start()
	}
	defer func() {
		if clock != nil {
			clock.Stop()
		}
		done()
	}()

	for i := int64(0); i < ticks; i++ {
		if ctx.Err() != nil {
			return
		}
		if clock != nil {
			select {
			case <-ctx.Done():
				return
			case <-clock.Ch:
			}
		}
		m.Step()
	}
}

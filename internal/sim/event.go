// internal/sim/event.go

package sim

import (
	"time"

	"wrrsched/internal/sched"
)

// StatusKind represents the type of machine event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusSpawn
	StatusDispatch
	StatusRequeue
	StatusYield
	StatusRegroup
	StatusSleep
	StatusWakeup
	StatusLimit
	StatusKill
	StatusFinish
	StatusTick
)

// StatusEvent is emitted on every context switch or task state change, and
// once per simulated tick.
type StatusEvent struct {
	Clock    time.Duration // simulated time
	Tick     int64
	Kind     StatusKind
	CPU      int
	TaskID   sched.TaskID
	Task     string
	Class    sched.WeightClass
	Slice    int64 // remaining slice after the event
	RanTicks int64
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusSpawn:
		return "Spawn"
	case StatusDispatch:
		return "Dispatch"
	case StatusRequeue:
		return "Requeue"
	case StatusYield:
		return "Yield"
	case StatusRegroup:
		return "Regroup"
	case StatusSleep:
		return "Sleep"
	case StatusWakeup:
		return "Wakeup"
	case StatusLimit:
		return "CPULimit"
	case StatusKill:
		return "Kill"
	case StatusFinish:
		return "Finish"
	case StatusTick:
		return "Tick"
	default:
		return "Unknown"
	}
}

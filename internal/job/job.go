package job

import (
	"fmt"
	"strings"
	"time"
)

// Spec describes one simulated task: when it arrives, how much CPU it needs
// and how it blocks.
type Spec struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group"`
	Profile string `yaml:"profile"` // optional preset, see Profiles
	Count   int    `yaml:"count"`   // copies of this spec, default 1

	Arrive  int64 `yaml:"arrive"`   // tick the task is created
	Burst   int64 `yaml:"burst"`    // ticks of CPU until exit, 0 = never exits
	IOEvery int64 `yaml:"io_every"` // block after this many ticks of CPU, 0 = never
	IOTicks int64 `yaml:"io_ticks"` // ticks spent blocked

	YieldEvery int64  `yaml:"yield_every"` // yield after this many ticks of CPU, 0 = never
	RegroupAt  int64  `yaml:"regroup_at"`  // ticks of CPU after which the task moves to RegroupTo, 0 = never
	RegroupTo  string `yaml:"regroup_to"`

	CPUs []int `yaml:"cpus"` // allowed CPUs, empty = any

	RlimitSoftMS int64 `yaml:"rlimit_soft_ms"` // 0 = unlimited
	RlimitHardMS int64 `yaml:"rlimit_hard_ms"` // 0 = unlimited
}

// Profile is a preset behaviour a spec can start from.
type Profile struct {
	Group      string
	Burst      int64
	IOEvery    int64
	IOTicks    int64
	YieldEvery int64
}

// Profiles known by name.
var Profiles = map[string]Profile{
	// interactive: short bursts of work between long sleeps
	"interactive": {Group: "/", Burst: 400, IOEvery: 3, IOTicks: 20},
	// cpu: foreground number crunching that never blocks
	"cpu": {Group: "/", Burst: 2000},
	// cooperative: foreground work that gives the CPU away every few ticks
	"cooperative": {Group: "/", Burst: 1000, YieldEvery: 4},
	// batch: background work that never blocks
	"batch": {Group: "/bg_non_interactive", Burst: 2000},
	// daemon: background, never exits, wakes periodically
	"daemon": {Group: "/bg_non_interactive", IOEvery: 1, IOTicks: 50},
}

// Resolve fills the unset fields of s from its profile and checks it.
func (s Spec) Resolve() (Spec, error) {
	if s.Profile != "" {
		p, ok := Profiles[strings.ToLower(s.Profile)]
		if !ok {
			return s, fmt.Errorf("job %q: unknown profile %q", s.Name, s.Profile)
		}
		if s.Group == "" {
			s.Group = p.Group
		}
		if s.Burst == 0 {
			s.Burst = p.Burst
		}
		if s.IOEvery == 0 {
			s.IOEvery = p.IOEvery
		}
		if s.IOTicks == 0 {
			s.IOTicks = p.IOTicks
		}
		if s.YieldEvery == 0 {
			s.YieldEvery = p.YieldEvery
		}
	}
	if s.Group == "" {
		s.Group = "/"
	}
	if s.Count <= 0 {
		s.Count = 1
	}
	if s.Burst < 0 || s.IOEvery < 0 || s.IOTicks < 0 || s.Arrive < 0 || s.YieldEvery < 0 || s.RegroupAt < 0 {
		return s, fmt.Errorf("job %q: negative tick value", s.Name)
	}
	if s.RegroupAt > 0 && s.RegroupTo == "" {
		return s, fmt.Errorf("job %q: regroup_at without regroup_to", s.Name)
	}
	if s.IOEvery > 0 && s.IOTicks == 0 {
		s.IOTicks = 1
	}
	return s, nil
}

// SoftLimit returns the soft CPU-time limit, or -1 when unlimited.
func (s Spec) SoftLimit() time.Duration { return msLimit(s.RlimitSoftMS) }

// HardLimit returns the hard CPU-time limit, or -1 when unlimited.
func (s Spec) HardLimit() time.Duration { return msLimit(s.RlimitHardMS) }

func msLimit(ms int64) time.Duration {
	if ms <= 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// Generate returns n specs of the named profile arriving every spacing ticks.
func Generate(profile string, n int, spacing int64) ([]Spec, error) {
	if _, ok := Profiles[strings.ToLower(profile)]; !ok {
		return nil, fmt.Errorf("unknown profile %q", profile)
	}
	out := make([]Spec, 0, n)
	for i := 0; i < n; i++ {
		s, err := Spec{
			Name:    fmt.Sprintf("%s-%d", profile, i),
			Profile: profile,
			Arrive:  int64(i) * spacing,
		}.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

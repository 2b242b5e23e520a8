// internal/sched/class.go

package sched

import "sync"

// WeightClass is the two-way (plus fallback) classification of a task.
type WeightClass int

const (
	Foreground WeightClass = iota
	Background
	Other
)

const (
	ForegroundWeight = 10
	BackgroundWeight = 1

	// DefaultTimeslice is the base slice in ticks (10ms at HZ=1000).
	DefaultTimeslice = 10
)

// Default group paths used by GroupClassifier.
const (
	RootGroup          = "/"
	BackgroundGroupDir = "/bg_non_interactive"
)

func (c WeightClass) String() string {
	switch c {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Classifier is the classification oracle. Implementations must be safe for
// concurrent use and must never take a run-queue lock.
type Classifier interface {
	Classify(t *Task) WeightClass
}

// ClassifierFunc adapts a plain function to a Classifier.
type ClassifierFunc func(t *Task) WeightClass

func (f ClassifierFunc) Classify(t *Task) WeightClass { return f(t) }

// GroupClassifier classifies tasks by their group path. The zero value maps
// "/" to Foreground and "/bg_non_interactive" to Background.
type GroupClassifier struct {
	mu         sync.RWMutex
	foreground map[string]struct{}
	background map[string]struct{}
}

// NewGroupClassifier creates a classifier for the given group paths. Empty
// slices fall back to the default paths.
func NewGroupClassifier(foreground, background []string) *GroupClassifier {
	g := &GroupClassifier{}
	g.SetGroups(foreground, background)
	return g
}

// SetGroups replaces the group path tables.
func (g *GroupClassifier) SetGroups(foreground, background []string) {
	if len(foreground) == 0 {
		foreground = []string{RootGroup}
	}
	if len(background) == 0 {
		background = []string{BackgroundGroupDir}
	}
	fg := make(map[string]struct{}, len(foreground))
	for _, p := range foreground {
		fg[p] = struct{}{}
	}
	bg := make(map[string]struct{}, len(background))
	for _, p := range background {
		bg[p] = struct{}{}
	}

	g.mu.Lock()
	g.foreground, g.background = fg, bg
	g.mu.Unlock()
}

// Classify implements Classifier.
func (g *GroupClassifier) Classify(t *Task) WeightClass {
	if t == nil {
		return Other
	}
	path := t.Group()

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.foreground == nil {
		switch path {
		case RootGroup:
			return Foreground
		case BackgroundGroupDir:
			return Background
		}
		return Other
	}
	if _, ok := g.foreground[path]; ok {
		return Foreground
	}
	if _, ok := g.background[path]; ok {
		return Background
	}
	return Other
}

// Policy maps weight classes to weights and time slices. It has no state
// besides the base slice and is safe to copy.
type Policy struct {
	BaseTimeslice int64
}

// NewPolicy returns a policy with the given base slice in ticks. Non-positive
// values use DefaultTimeslice.
func NewPolicy(base int64) Policy {
	if base <= 0 {
		base = DefaultTimeslice
	}
	return Policy{BaseTimeslice: base}
}

// Weight returns the weight of a class. Unknown classes weigh as Background.
func (p Policy) Weight(c WeightClass) int64 {
	if c == Foreground {
		return ForegroundWeight
	}
	return BackgroundWeight
}

// SliceTicks returns the full time slice of a class in ticks.
func (p Policy) SliceTicks(c WeightClass) int64 {
	base := p.BaseTimeslice
	if base <= 0 {
		base = DefaultTimeslice
	}
	return p.Weight(c) * base
}

package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_SliceTicks(t *testing.T) {
	p := NewPolicy(10)

	testCases := []struct {
		description string
		class       WeightClass
		weight      int64
		slice       int64
	}{
		{description: "foreground", class: Foreground, weight: 10, slice: 100},
		{description: "background", class: Background, weight: 1, slice: 10},
		{description: "other", class: Other, weight: 1, slice: 10},
		{description: "unknown", class: WeightClass(42), weight: 1, slice: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.EqualValues(t, tc.weight, p.Weight(tc.class))
			assert.EqualValues(t, tc.slice, p.SliceTicks(tc.class))
		})
	}
}

func TestPolicy_ZeroBase(t *testing.T) {
	assert.EqualValues(t, DefaultTimeslice, NewPolicy(0).BaseTimeslice)
	assert.EqualValues(t, ForegroundWeight*DefaultTimeslice, Policy{}.SliceTicks(Foreground))
}

func TestGroupClassifier(t *testing.T) {
	testCases := []struct {
		description string
		fg, bg      []string
		group       string
		expect      WeightClass
	}{
		{description: "root is foreground", group: "/", expect: Foreground},
		{description: "bg dir is background", group: "/bg_non_interactive", expect: Background},
		{description: "anything else", group: "/system", expect: Other},
		{description: "custom foreground", fg: []string{"/apps"}, group: "/apps", expect: Foreground},
		{description: "custom replaces root", fg: []string{"/apps"}, group: "/", expect: Other},
		{description: "custom background", bg: []string{"/batch"}, group: "/batch", expect: Background},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			c := NewGroupClassifier(tc.fg, tc.bg)
			assert.Equal(t, tc.expect, c.Classify(NewTask(1, "t", tc.group)))
		})
	}

	var zero GroupClassifier
	assert.Equal(t, Foreground, zero.Classify(fg(1)))
	assert.Equal(t, Background, zero.Classify(bg(2)))
	assert.Equal(t, Other, zero.Classify(nil))
}

func TestWRR_TimeSlice(t *testing.T) {
	h := newFakeHost(1)
	w, _ := newTestClass(t, h, true)

	assert.EqualValues(t, 100, w.TimeSlice(fg(1)))
	assert.EqualValues(t, 10, w.TimeSlice(bg(2)))
	assert.EqualValues(t, 10, w.TimeSlice(NewTask(3, "o", "/other")))

	task := fg(4)
	task.SetGroup(BackgroundGroupDir)
	assert.EqualValues(t, 10, w.TimeSlice(task))

	broken := New(h, Options{Classifier: ClassifierFunc(func(*Task) WeightClass { return WeightClass(-3) })})
	assert.Equal(t, Background, broken.Classify(task))
	assert.EqualValues(t, DefaultTimeslice, broken.TimeSlice(task))
}

func TestCPUSet(t *testing.T) {
	s := NewCPUSet(3, 1, 2, 1, -1)
	assert.Equal(t, []int{1, 2, 3}, s.CPUs())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.First())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(0))
	assert.Equal(t, "{1,2,3}", s.String())
	assert.Equal(t, []int{2, 3}, s.Intersect(NewCPUSet(0, 2, 3)).CPUs())

	var empty CPUSet
	assert.True(t, empty.Empty())
	assert.Equal(t, -1, empty.First())
	assert.Nil(t, empty.CPUs())
	assert.True(t, empty.Intersect(s).Empty())
}

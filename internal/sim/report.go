package sim

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"wrrsched/internal/sched"
)

// CPUReport summarizes one CPU over a run.
type CPUReport struct {
	CPU         int
	BusyTicks   int64
	Utilization float64
	AvgLoad     float64
	NrRunning   int
}

// ClassReport summarizes the CPU time received by one weight class.
type ClassReport struct {
	Class    sched.WeightClass
	Tasks    int
	RanTicks int64
	Share    float64
}

// TaskReport summarizes one task.
type TaskReport struct {
	ID     sched.TaskID
	Name   string
	Group  string
	Class  sched.WeightClass
	State  ProcState
	CPU    int
	Ran    int64
	Waited int64
	Limits int
}

// Report is the end-of-run summary.
type Report struct {
	RunID   string
	Ticks   int64
	CPUs    []CPUReport
	Classes []ClassReport
	Tasks   []TaskReport

	// spread of busy ticks and average load across CPUs
	BusyMean, BusyStdDev float64
	LoadMean, LoadStdDev float64
}

// Report builds the summary of the run so far.
func (m *Machine) Report(runID string) Report {
	m.stepMu.Lock()
	defer m.stepMu.Unlock()

	r := Report{RunID: runID, Ticks: m.tick}

	var busy, load []float64
	for _, cpu := range m.online.CPUs() {
		c := CPUReport{CPU: cpu, BusyTicks: m.busy[cpu], NrRunning: m.NrRunning(cpu)}
		if m.tick > 0 {
			c.Utilization = float64(m.busy[cpu]) / float64(m.tick)
			c.AvgLoad = float64(m.loadSum[cpu]) / float64(m.tick)
		}
		r.CPUs = append(r.CPUs, c)
		busy = append(busy, float64(c.BusyTicks))
		load = append(load, c.AvgLoad)
	}
	r.BusyMean, r.BusyStdDev = meanStdDev(busy)
	r.LoadMean, r.LoadStdDev = meanStdDev(load)

	byClass := map[sched.WeightClass]*ClassReport{}
	var total int64
	for _, p := range m.order {
		class := m.class.Classify(p.Task)
		r.Tasks = append(r.Tasks, TaskReport{
			ID:     p.ID,
			Name:   p.Name,
			Group:  p.Group(),
			Class:  class,
			State:  p.State,
			CPU:    p.CPU(),
			Ran:    p.Ran,
			Waited: p.Waited,
			Limits: p.Limits,
		})
		cr, ok := byClass[class]
		if !ok {
			cr = &ClassReport{Class: class}
			byClass[class] = cr
		}
		cr.Tasks++
		cr.RanTicks += p.Ran
		total += p.Ran
	}
	for _, class := range []sched.WeightClass{sched.Foreground, sched.Background, sched.Other} {
		cr, ok := byClass[class]
		if !ok {
			continue
		}
		if total > 0 {
			cr.Share = float64(cr.RanTicks) / float64(total)
		}
		r.Classes = append(r.Classes, *cr)
	}
	return r
}

func meanStdDev(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

// Write prints the report as aligned tables.
func (r Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s: %d ticks\n\n", r.RunID, r.Ticks)

	fmt.Fprintln(tw, "CPU\tBUSY\tUTIL\tAVG LOAD\tQUEUED")
	for _, c := range r.CPUs {
		fmt.Fprintf(tw, "%d\t%d\t%.1f%%\t%.1f\t%d\n", c.CPU, c.BusyTicks, 100*c.Utilization, c.AvgLoad, c.NrRunning)
	}
	fmt.Fprintf(tw, "busy mean=%.1f stddev=%.2f, load mean=%.1f stddev=%.2f\n\n", r.BusyMean, r.BusyStdDev, r.LoadMean, r.LoadStdDev)

	fmt.Fprintln(tw, "CLASS\tTASKS\tRAN\tSHARE")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", c.Class, c.Tasks, c.RanTicks, 100*c.Share)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "ID\tNAME\tGROUP\tCLASS\tSTATE\tCPU\tRAN\tWAITED\tLIMITS")
	for _, t := range r.Tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n", t.ID, t.Name, t.Group, t.Class, t.State, t.CPU, t.Ran, t.Waited, t.Limits)
	}
	return tw.Flush()
}

// internal/sim/recorder.go

package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Recorder prints machine events and optionally writes them as CSV.
type Recorder struct {
	mu    sync.Mutex
	out   io.Writer
	runID string

	csvFile   *os.File
	csvWriter *csv.Writer
}

// NewRecorder creates a recorder printing to out. A nil out prints nothing.
func NewRecorder(out io.Writer, runID string) *Recorder {
	return &Recorder{out: out, runID: runID}
}

// EnableCSV opens the given file path for CSV logging of events.
// Must be called before the first event.
func (r *Recorder) EnableCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"run_id", "clock_ns", "tick", "event", "cpu", "task_id", "task", "class", "slice", "ran_ticks"}); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()

	r.mu.Lock()
	r.csvFile = f
	r.csvWriter = w
	r.mu.Unlock()
	return nil
}

// Handle records one event. Tick events only go to the CSV.
func (r *Recorder) Handle(ev StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.csvWriter != nil {
		rec := []string{
			r.runID,
			strconv.FormatInt(int64(ev.Clock), 10),
			strconv.FormatInt(ev.Tick, 10),
			ev.Kind.String(),
			strconv.Itoa(ev.CPU),
			strconv.FormatUint(uint64(ev.TaskID), 10),
			ev.Task,
			ev.Class.String(),
			strconv.FormatInt(ev.Slice, 10),
			strconv.FormatInt(ev.RanTicks, 10),
		}
		_ = r.csvWriter.Write(rec)
	}

	// if we received a tick event which periodically occurs,
	// we can just return early and not print it for the brevity of output.
	if ev.Kind == StatusTick || r.out == nil {
		return
	}

	if ev.Kind == StatusIdle {
		fmt.Fprintf(r.out, "Tick: %07d CPU%d [%s]\n", ev.Tick, ev.CPU, center(ev.Kind.String(), 12))
		return
	}
	fmt.Fprintf(r.out, "Tick: %07d CPU%d [%s] => Task: %04d %-16s %-10s slice=%04d ran=%05d\n",
		ev.Tick,
		ev.CPU,
		center(ev.Kind.String(), 12),
		ev.TaskID,
		ev.Task,
		ev.Class,
		ev.Slice,
		ev.RanTicks,
	)
}

// Close flushes and closes the CSV file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.csvFile == nil {
		return nil
	}
	r.csvWriter.Flush()
	err := r.csvWriter.Error()
	if cerr := r.csvFile.Close(); err == nil {
		err = cerr
	}
	r.csvFile, r.csvWriter = nil, nil
	return err
}

// center pads str on both sides to width.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wrrsched/internal/job"
	"wrrsched/internal/sim"
)

func newRunCmd() *cobra.Command {
	var (
		ticks    int64
		cpus     int
		csvPath  string
		pace     time.Duration
		quiet    bool
		generate []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and print the report",
		Long: `Loads the config, submits its tasks (plus any generated ones), steps the
machine for the requested number of ticks and prints per-CPU, per-class and
per-task results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ticks") {
				cfg.Ticks = ticks
			}
			if cmd.Flags().Changed("cpus") {
				cfg.CPUs = cpus
				cfg.Online = nil
			}
			if csvPath != "" {
				cfg.CSV = csvPath
			}
			if !cmd.Flags().Changed("pace") && cfg.PaceMS > 0 {
				pace = time.Duration(cfg.PaceMS) * time.Millisecond
			}

			specs := cfg.Tasks
			for _, g := range generate {
				gen, err := parseGenerate(g)
				if err != nil {
					return err
				}
				specs = append(specs, gen...)
			}
			if len(specs) == 0 {
				return fmt.Errorf("no tasks: add tasks to the config or use --generate")
			}

			m := newMachine(cfg)
			if err := m.Submit(specs...); err != nil {
				return err
			}

			runID := "run_" + uuid.New().String()[:8]
			var out io.Writer = cmd.OutOrStdout()
			if quiet {
				out = nil
			}
			rec := sim.NewRecorder(out, runID)
			if cfg.CSV != "" {
				if err := rec.EnableCSV(cfg.CSV); err != nil {
					return err
				}
			}

			logger.Info("simulation started", "run", runID, "cpus", cfg.CPUs, "ticks", cfg.Ticks, "tasks", len(specs))
			runErr := m.Run(cmd.Context(), cfg.Ticks, pace, rec.Handle)
			if err := rec.Close(); err != nil {
				return err
			}
			if runErr != nil {
				logger.Warn("simulation interrupted", "run", runID, "error", runErr)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			return m.Report(runID).Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&ticks, "ticks", 0, "Ticks to simulate (overrides config)")
	cmd.Flags().IntVar(&cpus, "cpus", 0, "Simulated CPUs (overrides config, all online)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write every event to this CSV file")
	cmd.Flags().DurationVar(&pace, "pace", 0, "Wall-clock delay per tick")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the report")
	cmd.Flags().StringArrayVarP(&generate, "generate", "g", nil, "Generate tasks as profile:count[:spacing], e.g. batch:4:10")

	return cmd
}

// parseGenerate parses profile:count[:spacing].
func parseGenerate(s string) ([]job.Spec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid --generate %q: want profile:count[:spacing]", s)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid --generate %q: bad count", s)
	}
	var spacing int64
	if len(parts) == 3 {
		spacing, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil || spacing < 0 {
			return nil, fmt.Errorf("invalid --generate %q: bad spacing", s)
		}
	}
	return job.Generate(parts[0], n, spacing)
}

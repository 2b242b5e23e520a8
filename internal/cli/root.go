package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"wrrsched/internal/config"
	"wrrsched/internal/logging"
	"wrrsched/internal/sim"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the wrrsim CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wrrsim",
		Short: "Weighted round-robin scheduler simulator",
		Long:  "wrrsim drives the WRR scheduling class over a set of simulated CPUs and reports how CPU time was shared.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.Options{Level: flagLogLevel, Format: flagLogFormat, Output: cmd.ErrOrStderr()})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file, e.g. config.yml (defaults only when empty)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newInfoCmd(),
		newSlicesCmd(),
	)

	return root
}

// loadConfig reads the config named by --config. Logging settings from the
// file apply unless the matching flag was given.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	level, format := flagLogLevel, flagLogFormat
	if !flags.Changed("log-level") && !flagDebug && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	if !flags.Changed("log-format") && cfg.LogFormat != "" {
		format = cfg.LogFormat
	}
	logger = logging.New(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()})
	logger.Debug("config loaded", "path", flagConfig, "cpus", cfg.CPUs, "tick", cfg.TickDuration())
	return cfg, nil
}

// newMachine builds a simulated machine from cfg.
func newMachine(cfg config.Config) *sim.Machine {
	return sim.New(sim.Options{
		CPUs:             cfg.CPUs,
		Online:           cfg.OnlineSet(),
		Tick:             cfg.TickDuration(),
		BaseTimeslice:    cfg.BaseTimeslice,
		ForegroundGroups: cfg.ForegroundGroups,
		BackgroundGroups: cfg.BackgroundGroups,
		Strict:           cfg.Strict,
		KillOnLimit:      cfg.KillOnLimit,
		Logger:           logger,
	})
}

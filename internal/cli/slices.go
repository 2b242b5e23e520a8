package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wrrsched/internal/sched"
)

func newSlicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slices",
		Short: "Print the weight and time slice of every class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy := sched.NewPolicy(cfg.BaseTimeslice)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLASS\tWEIGHT\tSLICE (ticks)\tSLICE (time)")
			for _, c := range []sched.WeightClass{sched.Foreground, sched.Background, sched.Other} {
				ticks := policy.SliceTicks(c)
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c, policy.Weight(c), ticks, cfg.TickDuration()*time.Duration(ticks))
			}
			return tw.Flush()
		},
	}
}

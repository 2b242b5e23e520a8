package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	var after int64

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the per-CPU WRR run-queue info",
		Long:  "Submits the configured tasks, steps the machine --after ticks and prints the number of queued tasks and total weight of every online CPU.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			m := newMachine(cfg)
			if err := m.Submit(cfg.Tasks...); err != nil {
				return err
			}
			for i := int64(0); i < after; i++ {
				m.Step()
			}

			info := m.Class().Info()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "num_cpus: %d\n", info.NumCPUs)
			fmt.Fprintln(tw, "CPU\tNR_RUNNING\tTOTAL_WEIGHT")
			for i, cpu := range info.CPUs {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", cpu, info.NrRunning[i], info.TotalWeight[i])
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&after, "after", 1, "Ticks to simulate before sampling")
	return cmd
}

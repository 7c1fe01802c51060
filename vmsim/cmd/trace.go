package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/spf13/cobra"
)

func newTraceCmd() *cobra.Command {
	var result string

	c := &cobra.Command{
		Use:   "trace <recording.sqlite3>",
		Short: "List the translations stored by --record-db.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			reader := datarecording.NewReader(args[0])
			defer reader.Close()

			var filter tracing.TaskFilter
			if result != "" {
				filter = func(t tracing.Task) bool { return t.Result == result }
			}

			tasks, err := tracing.NewDBTraceReader(reader).
				ListTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Address\tVirtual Page\tPhysical Page\tResult\tSteps")

			for _, t := range tasks {
				steps := make([]string, 0, len(t.Steps))
				for _, s := range t.Steps {
					steps = append(steps, s.What)
				}

				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.What, t.VPN, t.Frame, t.Result,
					strings.Join(steps, " | "))
			}

			return tw.Flush()
		},
	}

	c.Flags().StringVar(&result, "result", "",
		"only list translations with this result (hit, miss or aborted)")

	return c
}

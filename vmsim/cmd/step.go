package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/vmsim/instrumentation/hooking"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/spf13/cobra"
)

func newStepCmd(opts *options) *cobra.Command {
	var quiet bool

	c := &cobra.Command{
		Use:   "step <hex-address>...",
		Short: "Walk through the translation of addresses one step at a time.",
		Long: `Walk through the translation of addresses one step at a time. ` +
			`Press Enter to run the next step and q to quit. ` +
			`When the input ends, the remaining steps run without pausing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var hooks []hooking.Hook
			if !quiet {
				hooks = append(hooks,
					tracing.NewEventLogger(log.New(out, "", 0)))
			}

			s, err := newSession(opts, cmd.ErrOrStderr(), hooks...)
			if err != nil {
				return err
			}

			driver := mmu.NewDriver(s.engine)
			driver.Submit(args...)

			var errs []error

			in := bufio.NewScanner(cmd.InOrStdin())
			interactive := true

			for {
				o, err := driver.Next()
				if errors.Is(err, mmu.ErrNoPendingAddress) {
					break
				}

				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					errs = append(errs, err)

					continue
				}

				printOutcome(out, o)

				if o.Terminal {
					printStats(out, s.engine.Stats())
				}

				if interactive && driver.Pending()+inFlight(driver) > 0 {
					fmt.Fprint(out, "Press Enter for the next step, q to quit: ")

					if !in.Scan() {
						interactive = false
						fmt.Fprintln(out)
					} else if strings.TrimSpace(in.Text()) == "q" {
						s.engine.Abort()
						break
					}
				}
			}

			errs = append(errs, s.Close())

			return errors.Join(errs...)
		},
	}

	c.Flags().BoolVarP(&quiet, "quiet", "q", false,
		"do not print the event log")

	return c
}

func inFlight(d *mmu.Driver) int {
	if _, ok := d.Current(); ok {
		return 1
	}

	return 0
}

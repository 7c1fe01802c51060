package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTranslateCmd(opts *options) *cobra.Command {
	var showTables bool

	c := &cobra.Command{
		Use:   "translate <hex-address>...",
		Short: "Translate addresses to completion, one after another.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var errs []error
			for _, address := range args {
				result, err := s.engine.Translate(address)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", address, err)
					errs = append(errs, err)

					continue
				}

				for _, o := range result.Events {
					printOutcome(out, o)
				}
			}

			if showTables {
				fmt.Fprintln(out)
				printSnapshot(out, s.engine.Snapshot())
				fmt.Fprintln(out)
			}

			printStats(out, s.engine.Stats())

			errs = append(errs, s.Close())

			return errors.Join(errs...)
		},
	}

	c.Flags().BoolVar(&showTables, "tables", true,
		"print the TLB, page table and physical memory after translating")

	return c
}

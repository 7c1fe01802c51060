package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sarchlab/vmsim/mem/vm/bitcodec"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/spf13/cobra"
)

func newRandomCmd(opts *options) *cobra.Command {
	var (
		count int
		seed  int64
	)

	c := &cobra.Command{
		Use:   "random",
		Short: "Translate uniformly random addresses.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}

			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			counter := tracing.NewResultCounter(nil)

			s, err := newSession(opts, cmd.ErrOrStderr(), traceHook(counter))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cfg, _ := s.engine.Config()
			r := rand.New(rand.NewSource(seed))

			driver := mmu.NewDriver(s.engine)
			for i := 0; i < count; i++ {
				binary, hex := bitcodec.RandomAddress(r, cfg.AddressBits)
				fmt.Fprintf(out, "Random address generated: %s (Binary: %s)\n",
					hex, binary)
				driver.Submit(hex)
			}

			outcomes, drainErr := driver.Drain()
			for _, o := range outcomes {
				if o.Terminal {
					printOutcome(out, o)
				}
			}

			printStats(out, s.engine.Stats())

			for _, result := range counter.ResultNames() {
				fmt.Fprintf(out, "Translations ending in %s: %d\n",
					result, counter.ResultCount(result))
			}

			fmt.Fprintf(out, "Average steps per translation: %.2f\n",
				counter.AverageSteps())

			if err := s.Close(); err != nil {
				return err
			}

			return drainErr
		},
	}

	c.Flags().IntVarP(&count, "count", "n", 10, "number of addresses")
	c.Flags().Int64Var(&seed, "seed", 0,
		"seed of the generator, the current time if not given")

	return c
}

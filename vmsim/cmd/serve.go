package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		port int
		open bool
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive visualization over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			m := monitoring.NewMonitor().WithPortNumber(port)
			m.RegisterEngine(s.engine)
			url := m.StartServer()

			if open {
				if err := browser.OpenURL(url); err != nil {
					log.Printf("cannot open browser: %v", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			<-ctx.Done()
			fmt.Fprintln(cmd.ErrOrStderr(), "Stopping server.")

			return nil
		},
	}

	c.Flags().IntVar(&port, "port", 0,
		"port to listen on, a random free port if not given")
	c.Flags().BoolVar(&open, "open", false, "open the page in a browser")

	return c
}

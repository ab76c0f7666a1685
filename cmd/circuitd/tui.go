package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
	"github.com/dd0wney/cluso-circuits/pkg/tui"
)

func newTUICmd() *cobra.Command {
	var tick time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit and drive a circuit in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The terminal belongs to the UI, so the circuit logs nowhere
			// unless a level was asked for explicitly.
			var logger logging.Logger = logging.NewNopLogger()
			if logLevel != "" {
				level, ok := logging.LookupLevel(logLevel)
				if !ok {
					return fmt.Errorf("unknown log level %q", logLevel)
				}
				f, err := os.CreateTemp("", "circuitd-tui-*.log")
				if err != nil {
					return err
				}
				defer f.Close()
				logger = logging.NewJSONLogger(f, level)
				fmt.Fprintf(cmd.ErrOrStderr(), "logging to %s\n", f.Name())
			}

			broker := pubsub.NewBroker(0)
			defer broker.Shutdown()
			c := circuit.New(circuit.WithLogger(logger), circuit.WithNotifier(broker))
			if seedDemo {
				if _, err := buildDemo(c); err != nil {
					return err
				}
			}

			events, err := broker.Subscribe(ctx)
			if err != nil {
				return err
			}
			return tui.Run(ctx, c, tui.Config{TickInterval: tick, Events: events})
		},
	}
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "how often armed timers advance (0 disables)")
	cmd.Flags().BoolVar(&seedDemo, "demo", false, "start with the demo circuit")
	return cmd
}

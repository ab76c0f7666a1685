package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.nanomsg.org/mangos/v3"

	"github.com/dd0wney/cluso-circuits/pkg/broadcast"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

func newWatchCmd() *cobra.Command {
	var (
		addr   string
		topics []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running daemon's broadcast socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				addr = cfg.Broadcast.Address
			}

			l, err := broadcast.Dial(addr, 500*time.Millisecond, topics...)
			if err != nil {
				return err
			}
			defer l.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			for ctx.Err() == nil {
				ev, err := l.Next()
				if errors.Is(err, mangos.ErrRecvTimeout) {
					continue
				}
				if err != nil {
					return err
				}
				if err := printEvent(out, ev, asJSON); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "broadcast address (defaults to broadcast.address from config)")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topics to follow (default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON events")
	return cmd
}

func printEvent(w io.Writer, ev pubsub.Event, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(ev)
	}
	ts := ev.Time.Format("15:04:05.000")
	switch {
	case ev.Activity != nil:
		_, err := fmt.Fprintf(w, "%s #%d %s\n", ts, ev.Seq, ev.Activity.Message)
		return err
	default:
		for _, ch := range ev.Changes {
			state := "off"
			if ch.IsOn {
				state = "ON"
			}
			if _, err := fmt.Fprintf(w, "%s #%d %s %s\n", ts, ev.Seq, ch.ComponentID, state); err != nil {
				return err
			}
		}
		return nil
	}
}

// Command circuitd serves a toy smart-home circuit over HTTP, WebSocket,
// GraphQL and an optional nanomsg broadcast socket, and offers a terminal UI
// and a scripted demo.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string
	seedDemo   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "circuitd",
		Short:         "Toy smart-home circuit engine",
		Long:          "circuitd places lights, switches, buttons, sensors, timers, wires and junctions on a\ncanvas, wires them together and keeps every component's power state consistent.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newTUICmd(),
		newDemoCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the circuitd version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "circuitd %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

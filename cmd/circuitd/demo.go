package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

// demoCircuit names the components buildDemo places.
type demoCircuit struct {
	Hall, Porch     string // switches
	Doorbell        string // button
	Motion          string // sensor
	Blinker         string // timer
	Feed, Splitter  string // wire, junction
	Ceiling, Garden string // lights
	Chime, Flasher  string // lights
}

// buildDemo lays out a small house: two switches that must both be on for
// the ceiling light, a wire and junction fanning the hall switch out to the
// garden, a doorbell chime, a motion-sensor porch light and a blinking timer.
func buildDemo(c *circuit.Circuit) (demoCircuit, error) {
	var d demoCircuit
	var err error

	add := func(dst *string, t circuit.ComponentType, name string, x, y float64) {
		if err != nil {
			return
		}
		var comp circuit.Component
		comp, err = c.AddComponent(t, circuit.Position{X: x, Y: y})
		if err != nil {
			return
		}
		*dst = comp.ID
		if name != "" {
			err = c.RenameComponent(comp.ID, name)
		}
	}
	connect := func(src, dst string) {
		if err != nil {
			return
		}
		_, err = c.Connect(src, circuit.PortOutput, dst, circuit.PortInput)
	}

	add(&d.Hall, circuit.TypeSwitch, "Hall Switch", 40, 40)
	add(&d.Porch, circuit.TypeSwitch, "Porch Switch", 40, 140)
	add(&d.Doorbell, circuit.TypeButton, "Doorbell", 40, 240)
	add(&d.Motion, circuit.TypeSensor, "Motion Sensor", 40, 340)
	add(&d.Blinker, circuit.TypeTimer, "Blinker", 40, 440)
	add(&d.Feed, circuit.TypeWire, "", 200, 40)
	add(&d.Splitter, circuit.TypeJunction, "", 320, 40)
	add(&d.Ceiling, circuit.TypeLight, "Ceiling Light", 480, 90)
	add(&d.Garden, circuit.TypeLight, "Garden Light", 480, 10)
	add(&d.Chime, circuit.TypeLight, "Chime Lamp", 480, 240)
	add(&d.Flasher, circuit.TypeLight, "Flasher", 480, 440)

	connect(d.Hall, d.Feed)
	connect(d.Feed, d.Splitter)
	connect(d.Splitter, d.Garden)
	connect(d.Hall, d.Ceiling)
	connect(d.Porch, d.Ceiling)
	connect(d.Doorbell, d.Chime)
	connect(d.Motion, d.Chime)
	connect(d.Blinker, d.Flasher)

	if err == nil {
		interval := 2
		err = c.Configure(d.Blinker, validation.ComponentPatch{Interval: &interval})
	}
	if err == nil {
		err = c.StartTimer(d.Blinker)
	}
	return d, err
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted walk through the demo circuit and print what happens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := logging.WarnLevel
			if logLevel != "" {
				level = logging.ParseLevel(logLevel)
			}
			c := circuit.New(circuit.WithLogger(logging.NewJSONLogger(os.Stderr, level)))
			return runDemo(cmd.OutOrStdout(), c)
		},
	}
}

type demoStep struct {
	title string
	do    func() error
}

// runDemo builds the demo circuit and drives it step by step, printing every
// light after each step.
func runDemo(w io.Writer, c *circuit.Circuit) error {
	d, err := buildDemo(c)
	if err != nil {
		return err
	}

	steps := []demoStep{
		{"Hall switch on: garden lights through wire and junction, ceiling waits for the porch switch", func() error { return c.ToggleSwitch(d.Hall) }},
		{"Porch switch on: ceiling light has both inputs", func() error { return c.ToggleSwitch(d.Porch) }},
		{"Hall switch off: ceiling and garden go dark", func() error { return c.ToggleSwitch(d.Hall) }},
		{"Doorbell held while motion is detected", func() error {
			if err := c.SetSensor(d.Motion, true); err != nil {
				return err
			}
			return c.PushButtonDown(d.Doorbell)
		}},
		{"Doorbell released: chime lamp loses one of its two inputs", func() error { return c.PushButtonUp(d.Doorbell) }},
		{"Two seconds pass: blinker flips on", func() error { c.AdvanceTimers(2); return nil }},
		{"Two more seconds: blinker flips off", func() error { c.AdvanceTimers(2); return nil }},
	}

	fmt.Fprintln(w, "Demo circuit")
	printLights(w, c)
	for i, step := range steps {
		if err := step.do(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintf(w, "\n%d. %s\n", i+1, step.title)
		printLights(w, c)
	}

	fmt.Fprintln(w, "\nRecent activity")
	for _, e := range c.Activity() {
		fmt.Fprintf(w, "  %s\n", e.Message)
	}
	return nil
}

func printLights(w io.Writer, c *circuit.Circuit) {
	var parts []string
	for _, comp := range c.Components() {
		if comp.Type != circuit.TypeLight {
			continue
		}
		state := "off"
		if comp.IsOn {
			state = "ON"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", comp.Name, state))
	}
	fmt.Fprintf(w, "   %s\n", strings.Join(parts, "  "))
}

package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

// errUsage is wrapped by every command-line parse failure.
var errUsage = errors.New("usage")

// commandHelp lists the console commands, one per line.
var commandHelp = []string{
	"add <type> [x y]",
	"connect <source-id> <target-id>",
	"disconnect <connection-id>",
	"delete <component-id>",
	"rename <component-id> <name...>",
	"move <component-id> <x> <y>",
	"set <component-id> <color|brightness|interval|value> <v>",
	"toggle|press|release|start|stop <component-id>",
	"light <light-id>",
	"sensor <component-id> on|off",
	"advance [steps]",
	"recompute",
}

// runCommand applies one console line to c and returns a status message.
func runCommand(c *circuit.Circuit, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: command cannot be empty", errUsage)
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	need := func(n int, form string) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s", errUsage, form)
		}
		return nil
	}

	switch verb {
	case "add":
		if err := need(1, "add <type> [x y]"); err != nil {
			return "", err
		}
		t, ok := circuit.ParseComponentType(strings.ToLower(args[0]))
		if !ok {
			return "", fmt.Errorf("%w: unknown type %q", errUsage, args[0])
		}
		var pos circuit.Position
		if len(args) >= 3 {
			x, errX := strconv.ParseFloat(args[1], 64)
			y, errY := strconv.ParseFloat(args[2], 64)
			if errX != nil || errY != nil {
				return "", fmt.Errorf("%w: coordinates must be numbers", errUsage)
			}
			pos = circuit.Position{X: x, Y: y}
		}
		comp, err := c.AddComponent(t, pos)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s %s", comp.Name, comp.ID), nil

	case "connect":
		if err := need(2, "connect <source-id> <target-id>"); err != nil {
			return "", err
		}
		conn, err := c.Connect(args[0], circuit.PortOutput, args[1], circuit.PortInput)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Connected %s → %s (%s)", conn.Source, conn.Target, conn.ID), nil

	case "disconnect":
		if err := need(1, "disconnect <connection-id>"); err != nil {
			return "", err
		}
		if err := c.Disconnect(args[0]); err != nil {
			return "", err
		}
		return "Disconnected " + args[0], nil

	case "delete":
		if err := need(1, "delete <component-id>"); err != nil {
			return "", err
		}
		if err := c.DeleteComponent(args[0]); err != nil {
			return "", err
		}
		return "Deleted " + args[0], nil

	case "rename":
		if err := need(2, "rename <component-id> <name...>"); err != nil {
			return "", err
		}
		name := strings.Join(args[1:], " ")
		if err := c.RenameComponent(args[0], name); err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed %s to %q", args[0], name), nil

	case "move":
		if err := need(3, "move <component-id> <x> <y>"); err != nil {
			return "", err
		}
		x, errX := strconv.ParseFloat(args[1], 64)
		y, errY := strconv.ParseFloat(args[2], 64)
		if errX != nil || errY != nil {
			return "", fmt.Errorf("%w: coordinates must be numbers", errUsage)
		}
		if err := c.MoveComponent(args[0], circuit.Position{X: x, Y: y}); err != nil {
			return "", err
		}
		return "Moved " + args[0], nil

	case "set":
		if err := need(3, "set <component-id> <property> <value>"); err != nil {
			return "", err
		}
		patch, err := parsePatch(args[1], args[2])
		if err != nil {
			return "", err
		}
		if err := c.Configure(args[0], patch); err != nil {
			return "", err
		}
		return fmt.Sprintf("Set %s on %s", args[1], args[0]), nil

	case "toggle", "press", "release", "start", "stop", "light":
		if err := need(1, verb+" <component-id>"); err != nil {
			return "", err
		}
		ops := map[string]func(string) error{
			"toggle":  c.ToggleSwitch,
			"press":   c.PushButtonDown,
			"release": c.PushButtonUp,
			"start":   c.StartTimer,
			"stop":    c.StopTimer,
			"light":   c.ToggleLight,
		}
		if err := ops[verb](args[0]); err != nil {
			return "", err
		}
		return describe(c, args[0]), nil

	case "sensor":
		if err := need(2, "sensor <component-id> on|off"); err != nil {
			return "", err
		}
		var active bool
		switch strings.ToLower(args[1]) {
		case "on", "true", "1":
			active = true
		case "off", "false", "0":
		default:
			return "", fmt.Errorf("%w: sensor state must be on or off", errUsage)
		}
		if err := c.SetSensor(args[0], active); err != nil {
			return "", err
		}
		return describe(c, args[0]), nil

	case "advance":
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return "", fmt.Errorf("%w: steps must be a positive integer", errUsage)
			}
			steps = n
		}
		changes := c.AdvanceTimers(steps)
		return fmt.Sprintf("Advanced timers %ds, %d state changes", steps, len(changes)), nil

	case "recompute":
		changes := c.RecomputeAll()
		return fmt.Sprintf("Recomputed, %d state changes", len(changes)), nil
	}

	return "", fmt.Errorf("%w: unknown command %q", errUsage, verb)
}

func parsePatch(field, value string) (validation.ComponentPatch, error) {
	var patch validation.ComponentPatch
	switch strings.ToLower(field) {
	case "name":
		patch.Name = &value
	case "color", "colour":
		patch.Color = &value
	case "brightness":
		n, err := strconv.Atoi(value)
		if err != nil {
			return patch, fmt.Errorf("%w: brightness must be an integer", errUsage)
		}
		patch.Brightness = &n
	case "interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return patch, fmt.Errorf("%w: interval must be an integer", errUsage)
		}
		patch.Interval = &n
	case "value":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return patch, fmt.Errorf("%w: value must be a number", errUsage)
		}
		patch.Value = &f
	default:
		return patch, fmt.Errorf("%w: unknown property %q", errUsage, field)
	}
	return patch, nil
}

func describe(c *circuit.Circuit, id string) string {
	comp, ok := c.Component(id)
	if !ok {
		return id
	}
	state := "OFF"
	if comp.IsOn {
		state = "ON"
	}
	return fmt.Sprintf("%s is now %s", comp.Name, state)
}

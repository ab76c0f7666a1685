package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Press    key.Binding
	Release  key.Binding
	Sensor   key.Binding
	Timer    key.Binding
	Delete   key.Binding
	Pause    key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run command"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle switch/light"),
	),
	Press: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "press button"),
	),
	Release: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "release button"),
	),
	Sensor: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "flip sensor"),
	),
	Timer: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "start/stop timer"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x", "delete"),
		key.WithHelp("x", "delete"),
	),
	Pause: key.NewBinding(
		key.WithKeys("."),
		key.WithHelp(".", "pause timers"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Toggle, k.Press, k.Release, k.Timer, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down, k.Delete},
		{k.Toggle, k.Press, k.Release, k.Sensor, k.Timer, k.Pause},
		{k.Quit},
	}
}

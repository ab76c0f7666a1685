// Package tui is an interactive terminal front end for a circuit: a component
// table with keyboard controls for sources, a command console for editing the
// graph, the activity log and a loop report. Timers tick on a tea.Tick loop.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

type view int

const (
	componentsView view = iota
	connectionsView
	consoleView
	activityView
	loopsView

	viewCount
)

var viewNames = []string{"Components", "Connections", "Console", "Activity", "Loops"}

// Config controls the terminal UI.
type Config struct {
	// TickInterval is how often armed timers advance one second. Zero
	// disables automatic ticking; "advance" still works from the console.
	TickInterval time.Duration
	// Events, when set, refreshes the view on every broker event so changes
	// made elsewhere (HTTP, WebSocket) show up immediately.
	Events *pubsub.Subscription
}

// Model is the bubbletea model.
type Model struct {
	circuit      *circuit.Circuit
	config       Config
	currentView  view
	commandInput textinput.Model
	table        table.Model
	help         help.Model
	keys         keyMap
	width        int
	height       int
	message      string
	messageErr   bool
	paused       bool
	events       int
	ticks        int
	startTime    time.Time

	components  []circuit.Component
	connections []circuit.Connection
	activity    []circuit.ActivityEntry
	loops       []circuit.Loop
	stats       circuit.Stats
}

type tickMsg time.Time

type eventMsg pubsub.Event

type eventsClosedMsg struct{}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(sub *pubsub.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// New creates a model over c.
func New(c *circuit.Circuit, config Config) Model {
	ti := textinput.New()
	ti.Placeholder = "add switch 10 20"
	ti.CharLimit = 200
	ti.Width = 60

	columns := []table.Column{
		{Title: "ID", Width: 22},
		{Title: "Type", Width: 9},
		{Title: "Name", Width: 18},
		{Title: "State", Width: 6},
		{Title: "Detail", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color("#FFB000")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		circuit:      c,
		config:       config,
		currentView:  componentsView,
		commandInput: ti,
		table:        t,
		help:         help.New(),
		keys:         keys,
		startTime:    time.Now(),
	}
	m.refresh()
	return m
}

// Init starts the tick loop and the event listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.config.TickInterval > 0 {
		cmds = append(cmds, tickCmd(m.config.TickInterval))
	}
	if m.config.Events != nil {
		cmds = append(cmds, waitForEvent(m.config.Events))
	}
	return tea.Batch(cmds...)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if !m.paused {
			m.circuit.AdvanceTimers(1)
			m.ticks++
		}
		m.refresh()
		return m, tickCmd(m.config.TickInterval)

	case eventMsg:
		m.events++
		m.refresh()
		return m, waitForEvent(m.config.Events)

	case eventsClosedMsg:
		m.config.Events = nil
		return m, nil

	case tea.KeyMsg:
		typing := m.currentView == consoleView && m.commandInput.Focused()

		switch {
		case msg.Type == tea.KeyCtrlC, !typing && key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + viewCount - 1) % viewCount)
			return m, nil

		case typing && key.Matches(msg, m.keys.Enter):
			m.execute(m.commandInput.Value())
			m.commandInput.SetValue("")
			return m, nil

		case m.currentView == componentsView:
			if m.handleComponentKey(msg) {
				return m, nil
			}

		case !typing && key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		}
	}

	switch m.currentView {
	case consoleView:
		m.commandInput, cmd = m.commandInput.Update(msg)
		cmds = append(cmds, cmd)
	case componentsView:
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setView(v view) {
	m.currentView = v
	if v == consoleView {
		m.commandInput.Focus()
	} else {
		m.commandInput.Blur()
	}
}

// handleComponentKey applies a source control to the selected row.
func (m *Model) handleComponentKey(msg tea.KeyMsg) bool {
	if key.Matches(msg, m.keys.Pause) {
		m.paused = !m.paused
		return true
	}

	selected, ok := m.selected()
	if !ok {
		return false
	}

	var err error
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if selected.Type == circuit.TypeLight {
			err = m.circuit.ToggleLight(selected.ID)
		} else {
			err = m.circuit.ToggleSwitch(selected.ID)
		}
	case key.Matches(msg, m.keys.Press):
		err = m.circuit.PushButtonDown(selected.ID)
	case key.Matches(msg, m.keys.Release):
		err = m.circuit.PushButtonUp(selected.ID)
	case key.Matches(msg, m.keys.Sensor):
		err = m.circuit.SetSensor(selected.ID, !selected.IsOn)
	case key.Matches(msg, m.keys.Timer):
		if selected.Armed {
			err = m.circuit.StopTimer(selected.ID)
		} else {
			err = m.circuit.StartTimer(selected.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		err = m.circuit.DeleteComponent(selected.ID)
	default:
		return false
	}

	if err != nil {
		m.setMessage(err.Error(), true)
	} else {
		m.setMessage(describe(m.circuit, selected.ID), false)
	}
	m.refresh()
	return true
}

func (m *Model) selected() (circuit.Component, bool) {
	row := m.table.SelectedRow()
	if row == nil {
		return circuit.Component{}, false
	}
	return m.circuit.Component(row[0])
}

func (m *Model) execute(line string) {
	msg, err := runCommand(m.circuit, line)
	if err != nil {
		m.setMessage(err.Error(), true)
	} else {
		m.setMessage(msg, false)
	}
	m.refresh()
}

func (m *Model) setMessage(msg string, isErr bool) {
	m.message = msg
	m.messageErr = isErr
}

// refresh re-reads the circuit and rebuilds the component table.
func (m *Model) refresh() {
	m.components = m.circuit.Components()
	sort.Slice(m.components, func(i, j int) bool { return m.components[i].ID < m.components[j].ID })
	m.connections = m.circuit.Connections()
	sort.Slice(m.connections, func(i, j int) bool {
		a, b := m.connections[i], m.connections[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	m.activity = m.circuit.Activity()
	m.loops = m.circuit.Loops()
	m.stats = m.circuit.Stats()

	rows := make([]table.Row, 0, len(m.components))
	for _, c := range m.components {
		rows = append(rows, table.Row{c.ID, string(c.Type), c.Name, onOff(c.IsOn), detail(c)})
	}
	m.table.SetRows(rows)
	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "off"
}

func detail(c circuit.Component) string {
	switch c.Type {
	case circuit.TypeLight:
		return fmt.Sprintf("%s %d%%", c.Properties.Color, c.Properties.Brightness)
	case circuit.TypeButton:
		if c.IsPressed {
			return "held"
		}
	case circuit.TypeTimer:
		if c.Armed {
			return fmt.Sprintf("armed, %ds of %ds", c.Properties.TimeLeft, c.Properties.Interval)
		}
		return fmt.Sprintf("stopped, every %ds", c.Properties.Interval)
	case circuit.TypeSensor:
		return fmt.Sprintf("value %.1f", c.Properties.Value)
	}
	return ""
}

// View renders the model.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("⚡ Circuit Playground"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case componentsView:
		s.WriteString(m.renderComponents())
	case connectionsView:
		s.WriteString(m.renderConnections())
	case consoleView:
		s.WriteString(m.renderConsole())
	case activityView:
		s.WriteString(m.renderActivity())
	case loopsView:
		s.WriteString(m.renderLoops())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m Model) renderTabs() string {
	rendered := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderComponents() string {
	ticking := "ticking"
	if m.paused || m.config.TickInterval == 0 {
		ticking = "paused"
	}
	stats := fmt.Sprintf(`Statistics
──────────────
Components: %d
Connections: %d
Powered:    %d
Loops:      %d
Timers:     %s
Events:     %d
Uptime:     %s`,
		m.stats.Components,
		m.stats.Connections,
		m.stats.Powered,
		len(m.loops),
		ticking,
		m.events,
		time.Since(m.startTime).Round(time.Second),
	)

	var body strings.Builder
	body.WriteString(headerStyle.Render("Components"))
	body.WriteString("\n\n")
	if len(m.components) == 0 {
		body.WriteString(helpStyle.Render("No components yet. Use the Console tab: add switch"))
	} else {
		body.WriteString(m.table.View())
	}

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, statsBoxStyle.Render(stats), body.String()))
}

func (m Model) renderConnections() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Connections"))
	s.WriteString("\n\n")

	if len(m.connections) == 0 {
		s.WriteString("No connections")
		return contentStyle.Render(s.String())
	}

	names := make(map[string]circuit.Component, len(m.components))
	for _, c := range m.components {
		names[c.ID] = c
	}
	for _, conn := range m.connections {
		src, dst := names[conn.Source], names[conn.Target]
		style := offStyle
		if src.IsOn {
			style = onStyle
		}
		s.WriteString(style.Render(fmt.Sprintf("◉ %s ──→ %s", src.Name, dst.Name)))
		s.WriteString(fmt.Sprintf("  %s\n", conn.ID))
	}
	return contentStyle.Render(s.String())
}

func (m Model) renderConsole() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Console"))
	s.WriteString("\n\n")
	s.WriteString(m.commandInput.View())
	s.WriteString("\n\n")
	for _, line := range commandHelp {
		s.WriteString(helpStyle.Render("  " + line))
		s.WriteString("\n")
	}
	return contentStyle.Render(s.String())
}

func (m Model) renderActivity() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Activity"))
	s.WriteString("\n\n")
	if len(m.activity) == 0 {
		s.WriteString("Nothing has happened yet")
	}
	for _, e := range m.activity {
		s.WriteString(fmt.Sprintf("%s  %s\n", e.Time.Format("15:04:05"), e.Message))
	}
	return contentStyle.Render(s.String())
}

func (m Model) renderLoops() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Loops"))
	s.WriteString("\n\n")

	if len(m.loops) == 0 {
		s.WriteString(loopBoxStyle.Render("No loops detected"))
		return contentStyle.Render(s.String())
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("%d loop(s). Each pass-through is visited once per pass.\n\n", len(m.loops)))
	for i, loop := range m.loops {
		body.WriteString(fmt.Sprintf("%d. %s → %s\n", i+1, strings.Join(loop, " → "), loop[0]))
	}
	s.WriteString(loopBoxStyle.Render(body.String()))
	return contentStyle.Render(s.String())
}

// Run drives the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *circuit.Circuit, config Config) error {
	p := tea.NewProgram(New(c, config), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

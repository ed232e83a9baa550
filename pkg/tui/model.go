// Package tui renders a live view of a run: one row per entity with a
// spinner while it executes, plus the final tally. Events arrive from the
// engine's Observer over a channel.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/start-out/starter/pkg/engine"
	"github.com/start-out/starter/pkg/graph"
	"github.com/start-out/starter/pkg/report"
)

// entityState tracks the status of one entity row.
type entityState struct {
	Name     string
	Kind     string
	Status   string // pending, running, done status name
	Detail   string
	started  time.Time
	Duration time.Duration
}

// Model is the Bubble Tea model for the run monitor.
type Model struct {
	entities []entityState
	index    map[string]int
	events   <-chan engine.Event

	spin     spinner.Model
	log      viewport.Model
	logLines []string
	done     bool
	err      error
	width    int
	height   int
}

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSkip    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// NewModel builds the monitor for a resolved plan. Feed the events channel
// from an engine Observer (Forward).
func NewModel(p *graph.Plan, events <-chan engine.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		index:  map[string]int{},
		events: events,
		spin:   sp,
		log:    viewport.New(80, 8),
	}
	for _, n := range p.Order {
		kind := "module"
		if n.IsTool() {
			kind = "tool"
		}
		m.index[n.Name] = len(m.entities)
		m.entities = append(m.entities, entityState{Name: n.Name, Kind: kind, Status: "pending"})
	}
	return m
}

// Forward adapts the engine observer callback to the event channel the
// model consumes. Close the channel when Up returns.
func Forward(ch chan<- engine.Event) engine.Observer {
	return func(ev engine.Event) {
		ch <- ev
	}
}

// --- Messages ---

type eventMsg struct {
	Event engine.Event
	ok    bool
}

// doneMsg signals that the engine finished and the channel closed.
type doneMsg struct{}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg{Event: ev, ok: true}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForEvent())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log.Width = msg.Width - 4
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(msg.Event)
		return m, m.waitForEvent()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev engine.Event) {
	i, ok := m.index[ev.Entity]
	if !ok {
		return
	}
	switch ev.Type {
	case engine.EventStarted:
		m.entities[i].Status = "running"
		m.entities[i].started = time.Now()
		m.appendLog("▶ " + ev.Entity)
	case engine.EventFinished:
		m.entities[i].Status = string(ev.Status)
		m.entities[i].Detail = ev.Detail
		if !m.entities[i].started.IsZero() {
			m.entities[i].Duration = time.Since(m.entities[i].started)
		}
		m.appendLog(fmt.Sprintf("%s %s %s", glyph(string(ev.Status), m.spin.View()), ev.Entity, ev.Status))
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 200 {
		m.logLines = m.logLines[len(m.logLines)-200:]
	}
	m.log.SetContent(strings.Join(m.logLines, "\n"))
	m.log.GotoBottom()
}

func glyph(status, spin string) string {
	switch status {
	case "pending":
		return styleSkip.Render("·")
	case "running":
		return styleRunning.Render(spin)
	case string(report.StatusInstalled), string(report.StatusLive):
		return styleOK.Render("✓")
	case string(report.StatusFailed):
		return styleFail.Render("✗")
	}
	return styleSkip.Render("⊘")
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("starter up") + "\n\n")

	for _, e := range m.entities {
		line := fmt.Sprintf("  %s %-20s %-8s %s", glyph(e.Status, m.spin.View()), e.Name, e.Kind, e.Status)
		if e.Detail != "" {
			line += styleSkip.Render(" (" + e.Detail + ")")
		}
		if e.Duration > 0 {
			line += styleSkip.Render(" " + e.Duration.Round(time.Millisecond).String())
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + m.log.View() + "\n")
	if m.done {
		b.WriteString(styleTitle.Render("\ndone, press q to exit\n"))
	}
	return b.String()
}

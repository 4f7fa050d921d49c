// Package tui is the terminal control panel: six parameter fields and a
// single Generate/Terminate button.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeoCommon/egrim/internal/control"
	"github.com/LeoCommon/egrim/internal/pipeline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = 500 * time.Millisecond

// Controller is the part of control.Controller the panel drives
type Controller interface {
	Toggle(control.Params) (bool, error)
	Running() bool
	Stats() pipeline.Stats
}

type fieldID int

const (
	fieldQueueLength fieldID = iota
	fieldPeriod
	fieldRotationStart
	fieldRotationRate
	fieldAddress
	fieldPort
	fieldButton
)

type field struct {
	label string
	value string
}

type tickMsg time.Time

type Model struct {
	ctrl   Controller
	fields []field
	focus  fieldID
	stats  pipeline.Stats
	err    error
	width  int
}

// New creates the panel with the fields filled from p
func New(ctrl Controller, p control.Params) Model {
	return Model{
		ctrl: ctrl,
		fields: []field{
			{label: "Queue length", value: strconv.Itoa(p.QueueLength)},
			{label: "Period (s)", value: strconv.FormatFloat(p.Period.Seconds(), 'f', -1, 64)},
			{label: "Rotation start (deg)", value: strconv.FormatFloat(p.RotationStart, 'f', -1, 64)},
			{label: "Rotation rate (deg/s)", value: strconv.FormatFloat(p.RotationRate, 'f', -1, 64)},
			{label: "Address", value: p.Address},
			{label: "Port", value: strconv.Itoa(p.Port)},
		},
		stats: ctrl.Stats(),
		width: 60,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.stats = m.ctrl.Stats()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "up", "shift+tab":
			m.focus = (m.focus + fieldButton) % (fieldButton + 1)
		case "down", "tab":
			m.focus = (m.focus + 1) % (fieldButton + 1)
		case "enter":
			m.toggle()
		default:
			m.edit(msg)
		}
	}

	return m, nil
}

// toggle presses the button with the current field values
func (m *Model) toggle() {
	m.err = nil

	params, err := m.params()
	if err != nil && !m.ctrl.Running() {
		m.err = err
		return
	}

	if _, err := m.ctrl.Toggle(params); err != nil {
		m.err = err
	}
	m.stats = m.ctrl.Stats()
}

func (m *Model) edit(msg tea.KeyMsg) {
	if m.focus == fieldButton || m.ctrl.Running() {
		return
	}

	f := &m.fields[m.focus]
	switch msg.Type {
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	case tea.KeyRunes:
		f.value += string(msg.Runes)
	}
}

// params parses the fields, ranges are checked by the controller
func (m Model) params() (control.Params, error) {
	var p control.Params
	var err error

	if p.QueueLength, err = strconv.Atoi(m.value(fieldQueueLength)); err != nil {
		return p, fmt.Errorf("queue length: %w", err)
	}

	period, err := strconv.ParseFloat(m.value(fieldPeriod), 64)
	if err != nil {
		return p, fmt.Errorf("period: %w", err)
	}
	p.Period = time.Duration(period * float64(time.Second))

	if p.RotationStart, err = strconv.ParseFloat(m.value(fieldRotationStart), 64); err != nil {
		return p, fmt.Errorf("rotation start: %w", err)
	}
	if p.RotationRate, err = strconv.ParseFloat(m.value(fieldRotationRate), 64); err != nil {
		return p, fmt.Errorf("rotation rate: %w", err)
	}

	p.Address = m.value(fieldAddress)

	if p.Port, err = strconv.Atoi(m.value(fieldPort)); err != nil {
		return p, fmt.Errorf("port: %w", err)
	}

	return p, nil
}

func (m Model) value(id fieldID) string {
	return strings.TrimSpace(m.fields[id].value)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Width(m.width).Render("egrim antenna status simulator"))
	b.WriteString("\n\n")

	running := m.ctrl.Running()
	for i, f := range m.fields {
		style := valueStyle
		switch {
		case running:
			style = lockedStyle
		case fieldID(i) == m.focus:
			style = focusStyle
		}

		cursor := "  "
		if fieldID(i) == m.focus {
			cursor = "> "
		}
		b.WriteString(cursor + labelStyle.Render(f.label) + style.Render(f.value) + "\n")
	}

	label := "Generate"
	if running {
		label = "Terminate"
	}
	button := buttonStyle
	if m.focus == fieldButton {
		button = button.BorderForeground(lipgloss.Color("212"))
	}
	b.WriteString("\n" + button.Render(label) + "\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.statusLine(running) + "\n")
	b.WriteString(helpStyle.Render("tab/arrows move  enter generate/terminate  q quit") + "\n")

	return b.String()
}

func (m Model) statusLine(running bool) string {
	state := idleStyle.Render(pipeline.Idle.String())
	if running {
		state = runningStyle.Render(pipeline.Running.String())
	}

	s := m.stats
	line := fmt.Sprintf("%s  generated %d  sent %d  failed %d  queued %d", state, s.Generated, s.Sent, s.Failed, s.QueueDepth)
	if s.IntervalMean > 0 {
		line += fmt.Sprintf("  interval %v ± %v", s.IntervalMean.Round(time.Microsecond), s.IntervalStdDev.Round(time.Microsecond))
	}
	if s.LastError != nil && s.Failed > 0 {
		line += "\n" + errorStyle.Render("last error: "+s.LastError.Error())
	}
	return line
}

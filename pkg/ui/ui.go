// Package ui renders a live terminal mirror of the control surface.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
	"github.com/AlessandroAnnini/midi-controller/pkg/profile"
)

const faderHeight = 8

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0"))
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B"))
	controlStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D8DEE9"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BF616A"))
	deviceStyle    = lipgloss.NewStyle().Faint(true)
	helpStyle      = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// knob glyphs from the 7 o'clock position (-135°) clockwise to 5 o'clock (+135°)
var knobGlyphs = []rune("↙←↖↑↗→↘")

type updateMsg struct{}

// New creates the mirror model over the given store.
func New(store *ctrl.Store) Model {
	return Model{
		store:    store,
		updates:  store.Subscribe(),
		snapshot: store.Snapshot(),
	}
}

// Model mirrors the surface: three knob rows, the fader bank, the connection
// status and the attached devices. It re-reads the store snapshot on every
// update notification and highlights the control that changed last.
type Model struct {
	store     *ctrl.Store
	updates   <-chan struct{}
	snapshot  ctrl.Snapshot
	highlight ctrl.ControlID
	width     int
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case updateMsg:
		next := m.store.Snapshot()
		if id, ok := next.Changed(m.snapshot); ok {
			m.highlight = id
		}
		m.snapshot = next
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m Model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, titleStyle.Render("midi-controller"))
	fmt.Fprintln(b, m.statusLine())
	fmt.Fprintln(b)

	for _, row := range profile.KnobRows() {
		fmt.Fprintln(b, m.knobRow(row[:]))
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b, m.faderBank())

	for _, device := range m.snapshot.Devices {
		fmt.Fprintln(b, deviceStyle.Render(fmt.Sprintf("  %s [%s]", device.Name, device.State)))
	}
	fmt.Fprintln(b, helpStyle.Render("q quit"))
	return b.String()
}

func (m Model) statusLine() string {
	switch m.snapshot.Status {
	case ctrl.StatusConnected:
		return connectedStyle.Render("● connected")
	case ctrl.StatusError:
		return errorStyle.Render("● error")
	case ctrl.StatusConnecting:
		return pendingStyle.Render("● connecting")
	default:
		return pendingStyle.Render("● disconnected")
	}
}

func (m Model) knobRow(row []ctrl.ControlID) string {
	cells := make([]string, len(row))
	for i, id := range row {
		value, ok := m.snapshot.Values[id]
		label := fmt.Sprintf("%-3s  %c  -  ", id, knobGlyph(value))
		if ok {
			label = fmt.Sprintf("%-3s  %c %.3f", id, knobGlyph(value), value)
		}
		cells[i] = m.controlCell(id).Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// knobGlyph picks the arrow for the knob angle -135° + value*270°.
func knobGlyph(value float64) rune {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	sector := int(value * float64(len(knobGlyphs)))
	if sector >= len(knobGlyphs) {
		sector = len(knobGlyphs) - 1
	}
	return knobGlyphs[sector]
}

func (m Model) faderBank() string {
	faders := profile.Faders()
	columns := make([]string, len(faders))
	for i, id := range faders {
		columns[i] = m.faderColumn(id)
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, columns...)
}

func (m Model) faderColumn(id ctrl.ControlID) string {
	value := m.snapshot.Values[id]
	filled := int(value*faderHeight + 0.5)
	if filled > faderHeight {
		filled = faderHeight
	}

	lines := make([]string, 0, faderHeight+1)
	for row := faderHeight; row > 0; row-- {
		if row <= filled {
			lines = append(lines, " ██ ")
		} else {
			lines = append(lines, " ░░ ")
		}
	}
	lines = append(lines, fmt.Sprintf("%-4s", id))
	return m.controlCell(id).Render(strings.Join(lines, "\n"))
}

func (m Model) controlCell(id ctrl.ControlID) lipgloss.Style {
	if id == m.highlight {
		return highlightStyle
	}
	return controlStyle
}

// Run shows the mirror until the user quits or the context behind the
// program ends it.
func Run(store *ctrl.Store) error {
	program := tea.NewProgram(New(store), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

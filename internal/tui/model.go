// Package tui is the interactive snapshot browser.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"autosaver/internal/config"
	"autosaver/internal/saver"
	"autosaver/internal/turn"
)

const (
	minLabelWidth = 8
	maxLabelWidth = 120
	appliedMarker = "●"
)

// Backend is what the browser needs from the engine. Calls may block on the
// engine lock, so the model only makes them from commands.
type Backend interface {
	List() ([]saver.Row, error)
	Apply(row int) error
	Rename(row int, label string) error
	Rescan() error
}

type mode int

const (
	modeList mode = iota
	modeConfirmApply
	modeRename
)

// Messages delivered to the model.
type (
	rowsMsg struct {
		rows []saver.Row
		err  error
	}
	doneMsg struct {
		status string
		err    error
	}
	logMsg          string
	errMsg          struct{ err error }
	storeChangedMsg struct{}
)

// Options configure a Model.
type Options struct {
	Source      string
	Destination string
	Widths      config.TUIConfig
	// Copy writes text to the clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

// Model lists the snapshots of one watch target and lets the user apply,
// rename and copy them.
type Model struct {
	backend Backend
	opts    Options
	widths  config.TUIConfig

	rows   []saver.Row
	cursor int
	offset int
	width  int
	height int

	mode  mode
	input textinput.Model

	status    string
	statusErr bool
	quitting  bool
}

func NewModel(backend Backend, opts Options) Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Placeholder = "label"
	ti.CharLimit = maxLabelWidth

	return Model{
		backend: backend,
		opts:    opts,
		widths:  opts.Widths,
		input:   ti,
		width:   100,
		height:  24,
	}
}

// Widths returns the column widths, including adjustments made while running.
func (m Model) Widths() config.TUIConfig { return m.widths }

func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	rows, err := m.backend.List()
	return rowsMsg{rows: rows, err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case rowsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.rows = msg.rows
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}
		m.clampOffset()
		return m, nil

	case doneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.status)
		}
		return m, m.load

	case logMsg:
		m.setStatus(string(msg))
		return m, nil

	case errMsg:
		m.setError(msg.err)
		return m, nil

	case storeChangedMsg:
		return m, m.load

	case tea.KeyMsg:
		switch m.mode {
		case modeConfirmApply:
			return m.updateConfirm(msg)
		case modeRename:
			return m.updateRename(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.clampOffset()
		}

	case "home", "g":
		m.cursor = 0
		m.clampOffset()

	case "end", "G":
		m.cursor = max(0, len(m.rows)-1)
		m.clampOffset()

	case "enter", "a":
		if len(m.rows) > 0 {
			m.mode = modeConfirmApply
		}

	case "e":
		if len(m.rows) > 0 {
			m.input.SetValue(m.rows[m.cursor].Snapshot.Label)
			m.input.CursorEnd()
			m.input.Focus()
			m.mode = modeRename
		}

	case "y":
		if len(m.rows) > 0 {
			path := m.rows[m.cursor].Snapshot.Path()
			if err := m.opts.Copy(path); err != nil {
				m.setError(fmt.Errorf("copying path: %w", err))
			} else {
				m.setStatus("copied " + path)
			}
		}

	case "r":
		backend := m.backend
		return m, func() tea.Msg {
			if err := backend.Rescan(); err != nil {
				return doneMsg{err: err}
			}
			return doneMsg{status: "rescanned"}
		}

	case "<":
		m.widths.LabelWidth = max(minLabelWidth, m.widths.LabelWidth-4)

	case ">":
		m.widths.LabelWidth = min(maxLabelWidth, m.widths.LabelWidth+4)
	}

	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		m.mode = modeList
		row, ok := m.selected()
		if !ok {
			return m, nil
		}
		backend := m.backend
		return m, func() tea.Msg {
			if err := backend.Apply(row.Index); err != nil {
				return doneMsg{err: err}
			}
			return doneMsg{status: "applied " + row.Snapshot.FileName()}
		}
	case "n", "esc", "q":
		m.mode = modeList
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeList
		return m, nil

	case "enter":
		m.input.Blur()
		m.mode = modeList
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		row := sel.Index
		label := strings.TrimSpace(m.input.Value())
		backend := m.backend
		return m, func() tea.Msg {
			if err := backend.Rename(row, label); err != nil {
				return doneMsg{err: err}
			}
			return doneMsg{status: "renamed"}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// selected returns the row under the cursor; rows can shrink under an open
// prompt when the engine rescans.
func (m Model) selected() (saver.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return saver.Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("autosaver"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s → %s  %d snapshot(s)", m.opts.Source, m.opts.Destination, len(m.rows))))
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
		b.WriteString("\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(dimStyle.Render(m.status))
		}
	}
	b.WriteString("\n")

	switch m.mode {
	case modeConfirmApply:
		if row, ok := m.selected(); ok {
			b.WriteString(fmt.Sprintf("Apply %s over the live save? ", row.Snapshot.FileName()))
		}
		b.WriteString(helpStyle.Render("y: confirm  n: cancel"))
	case modeRename:
		b.WriteString("Label: " + m.input.View())
	default:
		b.WriteString(helpStyle.Render("enter: apply  e: rename  y: copy path  r: rescan  </>: label width  q: quit"))
	}

	return b.String()
}

func (m Model) renderHeader() string {
	cols := []string{
		pad("", 1),
		pad("Timestamp", m.widths.TimestampWidth),
		pad("Turn", m.widths.TurnWidth),
		pad("Label", m.widths.LabelWidth),
	}
	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(row saver.Row, selected bool) string {
	marker := " "
	if row.Applied {
		marker = appliedMarker
	}
	snap := row.Snapshot
	cols := []string{
		pad(snap.Timestamp.Format(saver.TimestampLayout), m.widths.TimestampWidth),
		pad(formatTurn(snap.Turn), m.widths.TurnWidth),
		pad(snap.Label, m.widths.LabelWidth),
	}
	text := strings.Join(cols, " ")

	if selected {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, selectedStyle.Render(marker+" "+text))
	}
	if row.Applied {
		marker = appliedStyle.Render(marker)
	}
	return marker + " " + text
}

func (m Model) visibleRows() int {
	return max(1, m.height-5)
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func formatTurn(n int) string {
	switch n {
	case turn.Unknown:
		return ""
	case turn.NoCounter:
		return "-"
	default:
		return strconv.Itoa(n)
	}
}

func pad(s string, width int) string {
	width = max(width, 0)
	runes := []rune(s)
	if len(runes) > width {
		if width <= 2 {
			return string(runes[:width])
		}
		return string(runes[:width-2]) + ".."
	}
	return s + strings.Repeat(" ", width-len(runes))
}

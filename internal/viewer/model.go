// Package viewer provides the Bubble Tea chart viewer.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/chartpipe/internal/chart"
	"github.com/verte-zerg/chartpipe/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warningsPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

type loadedMsg struct {
	err error
}

type changedMsg struct{}

// Options configures a viewer.
type Options struct {
	Title string
	// Changes triggers a reload on every receive. Nil disables watching.
	Changes <-chan struct{}
}

type legendSpan struct {
	start, end int
	label      string
}

// Model implements the Bubble Tea chart viewer. Loads run as commands and
// report back as messages, so all chart mutation happens in Update.
type Model struct {
	chart   *chart.Chart
	loader  chart.Loader
	title   string
	changes <-chan struct{}

	keys     keyMap
	help     help.Model
	warnings viewport.Model

	width  int
	height int

	loading      bool
	showWarnings bool
	legendIdx    int
	legendSpans  []legendSpan
	errMsg       string
}

// NewModel constructs a viewer for c. The first load starts in Init.
func NewModel(c *chart.Chart, loader chart.Loader, opts Options) *Model {
	title := opts.Title
	if title == "" {
		title = c.ID()
	}
	return &Model{
		chart:     c,
		loader:    loader,
		title:     title,
		changes:   opts.Changes,
		keys:      defaultKeyMap(),
		help:      help.New(),
		warnings:  viewport.New(0, 0),
		legendIdx: -1,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForChange())
}

func (m *Model) load() tea.Cmd {
	m.loading = true
	c, loader := m.chart, m.loader
	return func() tea.Msg {
		return loadedMsg{err: c.Load(context.Background(), loader)}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case loadedMsg:
		m.loading = false
		switch {
		case errors.Is(msg.err, chart.ErrStale):
		case msg.err != nil:
			m.errMsg = msg.err.Error()
		default:
			m.errMsg = ""
		}
		m.legendIdx = -1
		m.refreshWarnings()
		m.updateLayout()
		return m, nil
	case changedMsg:
		return m, tea.Batch(m.load(), m.waitForChange())
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	if m.showWarnings {
		var cmd tea.Cmd
		m.warnings, cmd = m.warnings.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.chart.Dispose()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reload):
		return m, m.load()
	case key.Matches(msg, m.keys.Warnings):
		m.showWarnings = !m.showWarnings
		m.updateLayout()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updateLayout()
		return m, nil
	case key.Matches(msg, m.keys.NextLegend):
		m.stepLegend(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevLegend):
		m.stepLegend(-1)
		return m, nil
	case key.Matches(msg, m.keys.ClearFocus):
		m.focusLegend(-1)
		return m, nil
	}
	if m.showWarnings {
		var cmd tea.Cmd
		m.warnings, cmd = m.warnings.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) stepLegend(delta int) {
	f, ok := m.chart.Frame()
	if !ok || len(f.Legend) == 0 {
		return
	}
	n := len(f.Legend)
	next := m.legendIdx + delta
	if m.legendIdx < 0 && delta < 0 {
		next = n - 1
	}
	next = ((next % n) + n) % n
	m.focusLegend(next)
}

// focusLegend highlights entry idx; a negative idx clears the highlight.
func (m *Model) focusLegend(idx int) {
	f, ok := m.chart.Frame()
	if !ok {
		return
	}
	if m.legendIdx >= 0 && m.legendIdx < len(f.Legend) {
		m.chart.LegendLeave(f.Legend[m.legendIdx].Label)
	}
	m.legendIdx = -1
	if idx < 0 || idx >= len(f.Legend) {
		return
	}
	anchor := CellToPoint(m.legendAnchor(idx), m.chartRows()-1)
	if m.chart.LegendEnter(f.Legend[idx].Label, anchor) {
		m.legendIdx = idx
	}
}

func (m *Model) legendAnchor(idx int) int {
	if idx < len(m.legendSpans) {
		return m.legendSpans[idx].start
	}
	return 0
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionMotion && msg.Action != tea.MouseActionPress {
		return
	}
	row := msg.Y - m.chartTop()
	rows := m.chartRows()
	switch {
	case row >= 0 && row < rows:
		if m.legendIdx >= 0 {
			m.focusLegend(-1)
		}
		m.chart.Hover(CellToPoint(msg.X, row))
	case row == rows:
		m.chart.Hover(model.Point{X: -1, Y: -1})
		for i, span := range m.legendSpans {
			if msg.X >= span.start && msg.X < span.end {
				if i != m.legendIdx {
					m.focusLegend(i)
				}
				return
			}
		}
		m.focusLegend(-1)
	default:
		m.chart.Hover(model.Point{X: -1, Y: -1})
		m.focusLegend(-1)
	}
}

func (m *Model) chartTop() int {
	return 1
}

// chartRows is the height of the raster area.
func (m *Model) chartRows() int {
	footer := lipgloss.Height(m.help.View(m.keys))
	if m.errMsg != "" {
		footer++
	}
	rows := m.height - m.chartTop() - 1 - footer
	if m.showWarnings {
		rows -= m.warningsHeight()
	}
	return maxInt(rows, 1)
}

func (m *Model) warningsHeight() int {
	return maxInt(m.height/3, 4)
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.help.Width = m.width
	m.warnings.Width = maxInt(m.width-2, 1)
	m.warnings.Height = maxInt(m.warningsHeight()-2, 1)
	if err := m.chart.Resize(PixelSize(m.width, m.chartRows())); err != nil && !errors.Is(err, chart.ErrDisposed) {
		m.errMsg = err.Error()
	}
}

func (m *Model) refreshWarnings() {
	ws := m.chart.Warnings()
	if len(ws) == 0 {
		m.warnings.SetContent(mutedStyle.Render("No data warnings."))
		return
	}
	lines := make([]string, 0, len(ws))
	for _, w := range ws {
		lines = append(lines, w.String())
	}
	m.warnings.SetContent(strings.Join(lines, "\n"))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	parts := []string{fitLines(m.renderHeader(), m.width, 1)}
	rows := m.chartRows()
	f, ok := m.chart.Frame()
	switch {
	case ok:
		g := Rasterize(f, m.width, rows)
		g.Tooltip(f.Tooltip)
		parts = append(parts, fitLines(strings.Join(g.Lines(), "\n"), m.width, rows))
		parts = append(parts, fitLines(m.renderLegend(f.Legend), m.width, 1))
	case m.loading:
		parts = append(parts, fitLines(mutedStyle.Render("Loading…"), m.width, rows+1))
	default:
		parts = append(parts, fitLines(mutedStyle.Render("No data."), m.width, rows+1))
	}
	if m.showWarnings {
		parts = append(parts, warningsPane.Render(m.warnings.View()))
	}
	parts = append(parts, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	title := runewidth.Truncate(m.title, maxInt(m.width/2, 1), "…")
	status := ""
	switch n := len(m.chart.Warnings()); {
	case m.loading:
		status = mutedStyle.Render("  loading")
	case n > 0:
		status = warnStyle.Render(fmt.Sprintf("  %d warnings (w)", n))
	}
	return titleStyle.Render(title) + status
}

func (m *Model) renderLegend(entries []model.LegendEntry) string {
	m.legendSpans = m.legendSpans[:0]
	var b strings.Builder
	col := 0
	for _, e := range entries {
		label := runewidth.Truncate(e.Label, 24, "…")
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("■")
		text := label
		if e.Active {
			text = activeStyle.Render(label)
		}
		width := 2 + runewidth.StringWidth(label)
		if col+width > m.width {
			break
		}
		m.legendSpans = append(m.legendSpans, legendSpan{start: col, end: col + width, label: e.Label})
		b.WriteString(swatch + " " + text + "  ")
		col += width + 2
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	footer := headerStyle.Render(m.help.View(m.keys))
	if m.errMsg != "" {
		footer = errorStyle.Render(runewidth.Truncate(m.errMsg, m.width, "…")) + "\n" + footer
	}
	return footer
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

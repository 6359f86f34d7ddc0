package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/suite"
)

// ResultMsg reports one finished scenario. Feed these from
// suite.Runner.OnResult through the channel passed to New.
type ResultMsg struct {
	Name   string
	Result *conversation.TestResult
}

// DoneMsg carries the final suite output once every scenario has run.
type DoneMsg struct {
	Output *suite.Output
	Err    error
}

type scenarioState struct {
	name   string
	status string // "", conversation.StatusSuccess, etc.
	timeS  float64
}

// Model renders a live suite run: one line per scenario plus a progress
// bar, then a boxed summary when the run completes.
type Model struct {
	scenarios []scenarioState
	byName    map[string]int

	spinner  spinner.Model
	progress progress.Model

	events <-chan tea.Msg

	width    int
	done     bool
	finished int
	output   *suite.Output
	err      error
}

// New builds a model for the named scenarios, in display order. The
// events channel delivers ResultMsg values and a final DoneMsg.
func New(names []string, events <-chan tea.Msg) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle

	states := make([]scenarioState, len(names))
	byName := make(map[string]int, len(names))
	for i, n := range names {
		states[i] = scenarioState{name: n}
		byName[n] = i
	}

	return Model{
		scenarios: states,
		byName:    byName,
		spinner:   sp,
		progress:  progress.New(progress.WithDefaultGradient()),
		events:    events,
		width:     80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = msg.Width - 10
		if m.progress.Width > 60 {
			m.progress.Width = 60
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case ResultMsg:
		if i, ok := m.byName[msg.Name]; ok {
			m.scenarios[i].status = msg.Result.Status
			m.scenarios[i].timeS = msg.Result.ExecutionTime
		}
		m.finished++
		cmd := m.progress.SetPercent(float64(m.finished) / float64(len(m.scenarios)))
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case DoneMsg:
		m.done = true
		m.output = msg.Output
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("dinerbench suite"))
	b.WriteString("\n\n")

	nameWidth := 0
	for _, s := range m.scenarios {
		if w := runewidth.StringWidth(s.name); w > nameWidth {
			nameWidth = w
		}
	}

	for i, s := range m.scenarios {
		glyph, style := glyphFor(s.status)
		if s.status == "" && i == m.finished && !m.done {
			glyph = m.spinner.View()
			style = warnStyle
		}
		line := fmt.Sprintf("  %s %s", glyph, runewidth.FillRight(s.name, nameWidth))
		if s.status != "" {
			line += dimStyle.Render(fmt.Sprintf("  %.2fs", s.timeS))
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(m.progress.View())
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", m.finished, len(m.scenarios))))
	b.WriteString("\n")

	if m.done {
		b.WriteString("\n")
		b.WriteString(m.summaryView())
		b.WriteString("\n")
	} else {
		b.WriteString(dimStyle.Render("\n  press q to quit\n"))
	}

	return b.String()
}

func glyphFor(status string) (string, lipgloss.Style) {
	switch status {
	case conversation.StatusSuccess:
		return GlyphPassed, passStyle
	case conversation.StatusFailed:
		return GlyphFailed, failStyle
	case conversation.StatusError:
		return GlyphError, failStyle
	case conversation.StatusBlocked:
		return GlyphBlocked, warnStyle
	default:
		return GlyphPending, dimStyle
	}
}

func (m Model) summaryView() string {
	if m.err != nil {
		return summaryBoxStyle.Render(failStyle.Render(fmt.Sprintf("suite error: %v", m.err)))
	}
	if m.output == nil {
		return summaryBoxStyle.Render(dimStyle.Render("no results"))
	}
	s := m.output.Summary
	parts := []string{
		passStyle.Render(fmt.Sprintf("%d passed", s.Passed)),
	}
	if s.Failed > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Errors > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d errors", s.Errors)))
	}
	if s.Blocked > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d blocked", s.Blocked)))
	}
	line := strings.Join(parts, dimStyle.Render(" · "))
	line += dimStyle.Render(fmt.Sprintf("  (%d total, %.1fs)", s.Total, m.output.ElapsedSeconds))
	return summaryBoxStyle.Render(line)
}

// Output returns the final suite output after the program exits, or nil
// if the run was interrupted.
func (m Model) Output() *suite.Output { return m.output }

// Err returns the suite-level error, if any.
func (m Model) Err() error { return m.err }

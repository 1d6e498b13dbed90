// Package tui provides a terminal transport view for live playback
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/james-see/stepseq/pkg/scheduler"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	rowNameStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			Width(14)

	playheadStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// Key step sizes
const (
	TempoStep = 1.0
	SwingStep = 0.05
)

// stepBuffer is how many played positions may queue before the view drops some
const stepBuffer = 64

// stepMsg carries a played position from the scheduler
type stepMsg scheduler.Position

// Model is the transport view
type Model struct {
	sched   *scheduler.Scheduler
	name    string
	steps   chan scheduler.Position
	spinner spinner.Model

	pos    scheduler.Position
	played bool
	rows   []string
	bar    [][]uint8 // velocities of the bar under the playhead, [row][step]
	status string
	width  int
}

// New creates a transport view for s. name labels the pattern in the header.
func New(s *scheduler.Scheduler, name string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(acidGreen)

	steps := make(chan scheduler.Position, stepBuffer)
	s.OnStep(func(pos scheduler.Position) {
		select {
		case steps <- pos:
		default:
		}
	})

	m := Model{
		sched:   s,
		name:    name,
		steps:   steps,
		spinner: sp,
	}
	m.snapshot(0)
	return m
}

// Init starts listening for played steps
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForStep(m.steps), m.spinner.Tick)
}

func waitForStep(ch <-chan scheduler.Position) tea.Cmd {
	return func() tea.Msg {
		return stepMsg(<-ch)
	}
}

// snapshot copies row names and one bar of velocities out of the scheduler's pattern
func (m *Model) snapshot(bar int) {
	m.sched.Edit(func(p *pattern.Pattern) {
		bar = min(bar, p.Bars()-1)
		m.rows = make([]string, p.Rows())
		m.bar = make([][]uint8, p.Rows())
		for r := range m.rows {
			m.rows[r] = p.RowMeta(r).Name
			m.bar[r] = make([]uint8, p.StepsPerBar())
			for s := range m.bar[r] {
				m.bar[r][s] = p.Velocity(r, bar, s)
			}
		}
	})
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case stepMsg:
		pos := scheduler.Position(msg)
		if pos.Bar != m.pos.Bar || !m.played {
			m.snapshot(pos.Bar)
		}
		m.pos = pos
		m.played = true
		return m, waitForStep(m.steps)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ", "space", "enter":
		if m.sched.Toggle() == scheduler.Playing {
			m.status = "playing"
		} else {
			m.status = "stopped"
			m.played = false
		}
	case "+", "=":
		m.sched.SetTempo(m.sched.Tempo() + TempoStep)
		m.status = fmt.Sprintf("tempo %.0f", m.sched.Tempo())
	case "-", "_":
		m.sched.SetTempo(m.sched.Tempo() - TempoStep)
		m.status = fmt.Sprintf("tempo %.0f", m.sched.Tempo())
	case "]":
		m.sched.SetSwing(m.sched.Swing() + SwingStep)
		m.status = fmt.Sprintf("swing %.0f%%", m.sched.Swing()*100)
	case "[":
		m.sched.SetSwing(m.sched.Swing() - SwingStep)
		m.status = fmt.Sprintf("swing %.0f%%", m.sched.Swing()*100)
	case "m":
		on := !m.sched.Metronome()
		m.sched.SetMetronome(on)
		m.status = "metronome " + onOff(on)
	case "q", "ctrl+c", "esc":
		m.sched.Stop()
		return m, tea.Quit
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" STEPSEQ  %s ", filepath.Base(m.name))))
	s.WriteString("\n")

	state := m.sched.State()
	indicator := "■"
	if state == scheduler.Playing {
		indicator = m.spinner.View()
	}
	s.WriteString(field("Transport", fmt.Sprintf("%s %s", indicator, strings.ToUpper(state.String()))))
	s.WriteString(field("Tempo", fmt.Sprintf("%.0f BPM", m.sched.Tempo())))
	s.WriteString(field("Swing", fmt.Sprintf("%.0f%%", m.sched.Swing()*100)))
	s.WriteString(field("Metronome", onOff(m.sched.Metronome())))
	if m.played {
		s.WriteString(field("Position", fmt.Sprintf("bar %d  step %d", m.pos.Bar+1, m.pos.Step+1)))
	} else {
		s.WriteString(field("Position", "-"))
	}
	s.WriteString("\n")
	s.WriteString(m.viewBar())

	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("space: play/stop • +/-: tempo • [/]: swing • m: metronome • q: quit"))

	return boxStyle.Render(s.String())
}

func (m Model) viewBar() string {
	var s strings.Builder
	for r, name := range m.rows {
		s.WriteString(rowNameStyle.Render(name))
		for step, v := range m.bar[r] {
			cell := "·"
			if v > 0 {
				cell = "●"
			}
			if m.played && step == m.pos.Step {
				s.WriteString(playheadStyle.Render(cell))
			} else {
				s.WriteString(cell)
			}
		}
		s.WriteString("\n")
	}
	return s.String()
}

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Run starts the transport view and blocks until the user quits
func Run(s *scheduler.Scheduler, name string) error {
	p := tea.NewProgram(New(s, name), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

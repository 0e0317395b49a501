// Package inspector is a terminal debugger for the core: a bubbletea
// program that single-steps or free-runs a *bus.Bus and renders CPU,
// PPU, and APU state as a lipgloss layout after every update.
package inspector

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"gones/internal/bus"
)

// tickMsg drives free-run mode: one message per host tick, each
// stepping the bus by one full video frame.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is bubbletea's immutable-update-loop state: every Update
// returns a new model rather than mutating in place, matching the
// framework's own contract.
type model struct {
	b       *bus.Bus
	romName string

	running  bool
	lastErr  error
	stepped  uint64
	logLines []string
}

// New builds the initial model around an already-loaded Bus.
func New(b *bus.Bus, romName string) model {
	return model{b: b, romName: romName}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case " ", "n":
			if m.lastErr == nil {
				if _, err := m.b.Step(); err != nil {
					m.lastErr = err
				}
				m.stepped++
			}

		case "f":
			if m.lastErr == nil {
				if err := m.b.RunFrame(); err != nil {
					m.lastErr = err
				}
			}

		case "r":
			m.running = !m.running
			if m.running {
				return m, tick()
			}
		}

	case tickMsg:
		if !m.running {
			return m, nil
		}
		if m.lastErr == nil {
			if err := m.b.RunFrame(); err != nil {
				m.lastErr = err
				m.running = false
			}
		}
		return m, tick()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
)

func (m model) cpuPanel() string {
	c := m.b.CPU
	return boxStyle.Render(fmt.Sprintf(
		"CPU\nPC: %04X  SP: %02X\nA: %02X X: %02X Y: %02X\nP: %08b\ncycles: %d",
		c.PC, c.SP, c.A, c.X, c.Y, c.GetStatusByte(), m.b.Cycles(),
	))
}

func (m model) ppuPanel() string {
	p := m.b.PPU
	return boxStyle.Render(fmt.Sprintf(
		"PPU\nscanline: %3d dot: %3d\nframe: %d\nstatus: %08b",
		p.Scanline(), p.Dot(), m.b.FrameCount(), p.Status(),
	))
}

func (m model) apuPanel() string {
	return boxStyle.Render(fmt.Sprintf(
		"APU\nIRQ pending: %t\nqueued samples: %d",
		m.b.APU.IRQPending(), len(m.b.AudioSamples()),
	))
}

func (m model) statusLine() string {
	mode := "stepping"
	if m.running {
		mode = "running"
	}
	return fmt.Sprintf("%s | %s | steps: %d  (space/n=step f=frame r=run/pause q=quit)",
		m.romName, mode, m.stepped)
}

func (m model) View() string {
	panels := lipgloss.JoinHorizontal(lipgloss.Top, m.cpuPanel(), m.ppuPanel(), m.apuPanel())

	var errLine string
	if m.lastErr != nil {
		errLine = errStyle.Render("halted: " + m.lastErr.Error() + "\n" + spew.Sdump(m.b.CPU))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(strings.ToUpper("gones inspector")),
		panels,
		m.statusLine(),
		errLine,
	)
}

// Run starts the interactive TUI and blocks until the user quits.
func Run(b *bus.Bus, romName string) error {
	_, err := tea.NewProgram(New(b, romName)).Run()
	return err
}

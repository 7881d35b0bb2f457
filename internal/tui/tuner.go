// Package tui is an interactive terminal tuner: it edits the gain
// and filter configuration of a controller and redraws the predicted
// open-loop Bode magnitude after every change.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/fpgakit/pidhost/internal/filter"
	"github.com/fpgakit/pidhost/internal/pid"
	"github.com/fpgakit/pidhost/internal/response"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type field struct {
	name string
	get  func() (float64, error)
	set  func(float64) error
	step float64
}

// Model is the bubbletea state for the tuner.
type Model struct {
	ctrl   *pid.Controller
	fields []field
	cursor int

	editing bool
	editBuf string

	freqs  []float64
	status string
	width  int
}

// NewModel builds a tuner over the controller, plotting across the
// given frequency grid.
func NewModel(ctrl *pid.Controller, freqs []float64) *Model {
	m := &Model{ctrl: ctrl, freqs: freqs, width: 80}

	m.fields = []field{
		{"p", ctrl.P, ctrl.SetP, 0.1},
		{"i [Hz]", ctrl.I, ctrl.SetI, 100},
		{"setpoint [V]", ctrl.Setpoint, ctrl.SetSetpoint, 0.01},
		{"min [V]", ctrl.MinVoltage, ctrl.SetMinVoltage, 0.01},
		{"max [V]", ctrl.MaxVoltage, ctrl.SetMaxVoltage, 0.01},
	}
	for slot := 0; slot < filter.MaxStages; slot++ {
		s := slot
		m.fields = append(m.fields, field{
			name: fmt.Sprintf("filter %d [Hz]", s+1),
			get:  func() (float64, error) { return ctrl.InputFilter()[s], nil },
			set: func(v float64) error {
				cascade := ctrl.InputFilter()
				cascade[s] = v
				ctrl.SetInputFilter(cascade)
				return nil
			},
			step: 100,
		})
	}
	return m
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.fields)-1 {
				m.cursor++
			}
		case "left", "h":
			m.adjust(-m.fields[m.cursor].step)
		case "right", "l":
			m.adjust(m.fields[m.cursor].step)
		case "enter":
			m.editing = true
			m.editBuf = ""
		case "r":
			m.status = ""
			if err := m.ctrl.ResetIntegrator(); err != nil {
				m.status = err.Error()
			}
		}
	}
	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		v, err := strconv.ParseFloat(m.editBuf, 64)
		if err == nil {
			m.apply(v)
		}
		m.editing = false
	case "esc":
		m.editing = false
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		s := msg.String()
		if len(s) == 1 && strings.ContainsAny(s, "0123456789.-e+") {
			m.editBuf += s
		}
	}
	return m, nil
}

func (m *Model) adjust(delta float64) {
	f := m.fields[m.cursor]
	cur, err := f.get()
	if err != nil {
		m.status = err.Error()
		return
	}
	m.apply(cur + delta)
}

func (m *Model) apply(v float64) {
	m.status = ""
	if err := m.fields[m.cursor].set(v); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("pid tuner"))
	b.WriteString("\n")

	for i, f := range m.fields {
		cur, err := f.get()
		val := fmt.Sprintf("%.6g", cur)
		if err != nil {
			val = "?"
		}
		if i == m.cursor && m.editing {
			val = m.editBuf + "_"
		}

		line := labelStyle.Render(f.name) + " " + valueStyle.Render(val)
		if i == m.cursor {
			line = activeStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(graphStyle.Render(m.plot()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(errStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select · ←/→ nudge · enter type value · r reset integrator · q quit"))
	return b.String()
}

func (m *Model) plot() string {
	pts, err := m.ctrl.TransferFunction(m.freqs, 0)
	if err != nil {
		return errStyle.Render("model: " + err.Error())
	}

	data := make([]float64, 0, len(pts))
	for i, db := range response.MagnitudesDB(pts) {
		if pts[i].Singular {
			continue
		}
		data = append(data, db)
	}
	if len(data) < 2 {
		return errStyle.Render("nothing finite to plot")
	}

	caption := fmt.Sprintf("|H| [dB], %g Hz .. %g Hz (log)", m.freqs[0], m.freqs[len(m.freqs)-1])
	if margins := response.ComputeMargins(pts); margins.HasCrossover {
		caption += fmt.Sprintf(" · crossover %.3g Hz, phase margin %.1f°",
			margins.CrossoverHz, margins.PhaseMarginDeg)
	}

	width := m.width - 12
	if width < 20 {
		width = 20
	}
	return asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Run starts the tuner and blocks until it exits.
func Run(ctrl *pid.Controller, freqs []float64) error {
	_, err := tea.NewProgram(NewModel(ctrl, freqs), tea.WithAltScreen()).Run()
	return err
}

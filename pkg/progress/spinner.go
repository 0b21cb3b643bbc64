// Package progress shows a terminal spinner while a model call is in flight.
package progress

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner implements converter.Progress. When disabled it runs the tracked
// function without drawing anything.
type Spinner struct {
	out     io.Writer
	enabled bool
	style   lipgloss.Style
}

// New returns a spinner drawing to out. Callers enable it only when out is a
// terminal.
func New(out io.Writer, enabled bool) *Spinner {
	return &Spinner{
		out:     out,
		enabled: enabled,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Disabled returns a spinner that never draws.
func Disabled() *Spinner {
	return &Spinner{out: io.Discard}
}

// Enabled reports whether the spinner draws anything.
func (s *Spinner) Enabled() bool {
	return s.enabled
}

// Track runs fn while showing label next to a spinner. The spinner is cleared
// before Track returns, whether fn succeeds, fails or panics.
func (s *Spinner) Track(ctx context.Context, label string, fn func(context.Context) error) error {
	if !s.enabled {
		return fn(ctx)
	}

	p := tea.NewProgram(newModel(label, s.style),
		tea.WithOutput(s.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The program's error only reflects the spinner itself.
		_, _ = p.Run()
	}()

	defer func() {
		p.Send(stopMsg{})
		<-done
	}()

	return fn(ctx)
}

type stopMsg struct{}

type model struct {
	spinner spinner.Model
	label   string
	start   time.Time
	stopped bool
}

func newModel(label string, style lipgloss.Style) model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = style
	return model{spinner: sp, label: label, start: time.Now()}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.stopped = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.stopped {
		return ""
	}
	elapsed := time.Since(m.start).Round(time.Second)
	return fmt.Sprintf("%s %s (%s)", m.spinner.View(), m.label, elapsed)
}

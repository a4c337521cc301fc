package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sqlgrounder/sqlgrounder/grounding"
)

var (
	phaseDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	phaseFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672")).Bold(true)
	phaseWaitStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

// phaseEvent reports one grounding factory's completion, fed to the
// progress model over a channel as the pipeline runs.
type phaseEvent struct {
	name string
	err  error
	done bool // final event, sent once the events channel is closed
}

type progressModel struct {
	status   map[string]error // nil entry means "finished ok"; absent means "pending"
	order    []string
	current  int
	spinner  spinner.Model
	bar      progress.Model
	events   <-chan phaseEvent
	finished bool
	failed   error
}

func newProgressModel(names []string, events <-chan phaseEvent) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return progressModel{
		status:  map[string]error{},
		order:   append([]string(nil), names...),
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
		events:  events,
	}
}

func waitForPhase(events <-chan phaseEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return phaseEvent{done: true}
		}
		return ev
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForPhase(m.events))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseEvent:
		if msg.done {
			m.finished = true
			return m, tea.Quit
		}
		m.status[msg.name] = msg.err
		m.current++
		if msg.err != nil {
			m.failed = msg.err
			m.finished = true
			return m, tea.Quit
		}
		return m, waitForPhase(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	out := ""
	for _, name := range m.order {
		err, seen := m.status[name]
		switch {
		case !seen:
			out += phaseWaitStyle.Render("  "+name) + "\n"
		case err != nil:
			out += phaseFailStyle.Render("✗ "+name+": "+err.Error()) + "\n"
		default:
			out += phaseDoneStyle.Render("✓ " + name) + "\n"
		}
	}
	if !m.finished {
		frac := float64(m.current) / float64(len(m.order))
		out += "\n" + m.spinner.View() + " " + m.bar.ViewAs(frac)
	}
	return out + "\n"
}

// runIntrospectWithProgress drives a's grounding factories one at a time
// (mirroring grounding.Introspect's own loop) so a bubbletea progress view
// can render per-phase completion while the pipeline runs.
func runIntrospectWithProgress(ctx context.Context, a grounding.Adapter) ([]grounding.Fragment, error) {
	factories := a.GroundingFactories()
	names := make([]string, len(factories))
	groundings := make([]grounding.Grounding, len(factories))
	for i, f := range factories {
		g := f(a)
		groundings[i] = g
		names[i] = g.Name()
	}

	events := make(chan phaseEvent)
	model := newProgressModel(names, events)
	program := tea.NewProgram(model)

	gctx := grounding.NewContext()
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		for _, g := range groundings {
			err := g.Run(ctx, gctx, a)
			events <- phaseEvent{name: g.Name(), err: err}
			if err != nil {
				errCh <- fmt.Errorf("grounding %q: %w", g.Name(), err)
				return
			}
		}
		errCh <- nil
	}()

	if _, err := program.Run(); err != nil {
		return nil, err
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return grounding.Emit(gctx), nil
}

package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pinnlab/internal/experiment"
	"github.com/san-kum/pinnlab/internal/train"
)

const (
	DefaultChunk  = 200
	maxChunk      = 5000
	canvasWidth   = 36
	canvasHeight  = 8
	chartWidth    = 60
	chartHeight   = 8
	tickRate      = time.Second / 30
	historyPoints = 400
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model trains both networks of a session from the Bubble Tea update loop.
type Model struct {
	ctx      context.Context
	session  *experiment.Session
	chunk    int
	running  bool
	showHelp bool
	frame    int

	plainLog []float64
	pinnLog  []float64
	latest   map[train.Kind]train.Loss
	started  time.Time

	outcome *experiment.Outcome
	err     error
}

func NewModel(ctx context.Context, s *experiment.Session, chunk int) Model {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return Model{
		ctx:     ctx,
		session: s,
		chunk:   chunk,
		running: true,
		latest:  make(map[train.Kind]train.Loss, 2),
		started: time.Now(),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

// Outcome is set once both trainers finished and the session was evaluated.
func (m Model) Outcome() *experiment.Outcome { return m.outcome }

func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.chunk = min(m.chunk*2, maxChunk)
		case "-", "_":
			m.chunk = max(m.chunk/2, 1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.frame++
		if m.outcome != nil || m.err != nil {
			return m, nil
		}
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	latest, err := m.session.Advance(m.ctx, m.chunk)
	if err != nil {
		m.err = err
		return
	}
	for kind, l := range latest {
		m.latest[kind] = l
		logged := LogLosses([]train.Loss{l})[0]
		if kind == train.Physics {
			m.pinnLog = appendCapped(m.pinnLog, logged)
		} else {
			m.plainLog = appendCapped(m.plainLog, logged)
		}
	}
	if m.session.Done() {
		m.outcome, m.err = m.session.Finish(m.ctx)
	}
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyPoints {
		xs = xs[1:]
	}
	return xs
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return Error("ERROR: " + m.err.Error())
	case m.outcome != nil:
		return Status("DONE", true) + Muted("  q to save and exit")
	case !m.running:
		return Status("PAUSED", false)
	}
	return Status("TRAINING", true)
}

func (m Model) lossLine(kind train.Kind) string {
	l, ok := m.latest[kind]
	if !ok {
		return Muted("waiting")
	}
	s := fmt.Sprintf("%.6f", l.Total)
	if kind == train.Physics {
		s += Muted(fmt.Sprintf("  data %.2e  physics %.2e", l.Data, l.Physics))
	}
	return s
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(Title("PINN vs NN  dA/dt = -kA") + "   " + m.status() + "\n\n")

	ds := m.session.Dataset
	s.WriteString(KV("progress", ProgressBar(m.session.Progress(), 30)+fmt.Sprintf(" %3.0f%%", 100*m.session.Progress())) + "\n")
	s.WriteString(KV("iterations", fmt.Sprintf("NN %d  PINN %d", m.session.Plain.Iter, m.session.PINN.Iter)) + "\n")
	s.WriteString(KV("per tick", fmt.Sprintf("%d", m.chunk)) + "\n")
	s.WriteString(KV("elapsed", time.Since(m.started).Round(time.Second).String()) + "\n")
	s.WriteString(KV("NN loss", m.lossLine(train.Plain)) + "\n")
	s.WriteString(KV("PINN loss", m.lossLine(train.Physics)) + "\n\n")

	if chart := LossChart(m.plainLog, m.pinnLog, chartWidth, chartHeight); chart != "" {
		s.WriteString(chart + "\n\n")
	}

	truth := make([]float64, len(ds.Grid))
	for i, t := range ds.Grid {
		truth[i] = m.session.Law().Analytic(t)
	}
	left := Panel(ModelName("NN", false)+Muted(" (extrapolation after t="+fmt.Sprintf("%g", ds.Cutoff)+")"),
		PredictionPanel(ds.Grid, truth, m.session.Plain.Net.Predict(ds.Grid), ds.Cutoff, canvasWidth, canvasHeight))
	right := Panel(ModelName("PINN", true),
		PredictionPanel(ds.Grid, truth, m.session.PINN.Net.Predict(ds.Grid), ds.Cutoff, canvasWidth, canvasHeight))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n")

	if m.outcome != nil {
		s.WriteString("\n" + m.outcome.Report.Summary() + "\n")
	}

	s.WriteString("\n" + keyHint.Render("SP:Pause +/-:Speed T:Theme ?:Help Q:Quit"))

	if m.showHelp {
		return helpOverlay + "\n\n" + s.String()
	}
	return s.String()
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume training    ║
║  +        - Double iterations/tick   ║
║  -        - Halve iterations/tick    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

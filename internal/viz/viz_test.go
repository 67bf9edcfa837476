package viz

import (
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/experiment"
	"github.com/san-kum/pinnlab/internal/train"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if !c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Error("expected dots to be set")
	}
	if c.IsSet(1, 0) {
		t.Error("unexpected dot set")
	}
	if got := []rune(strings.TrimSuffix(c.String(), "\n")); got[0] != 0x2801 || got[1] != 0x2880 {
		t.Errorf("unexpected cells %U", got)
	}
}

func TestCanvasCurveClamps(t *testing.T) {
	c := NewCanvas(10, 2)
	w := Window{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
	c.Curve([]float64{0, 1}, []float64{0, 5}, w)

	if !c.IsSet(0, 7) {
		t.Error("start point should be at the bottom left")
	}
	if !c.IsSet(19, 0) {
		t.Error("point above the window should clamp to the top edge")
	}
}

func TestCanvasVLine(t *testing.T) {
	c := NewCanvas(10, 2)
	c.VLine(0.5, Window{XMin: 0, XMax: 1, YMin: 0, YMax: 1})
	lit := 0
	for y := 0; y < 8; y++ {
		if c.IsSet(10, y) {
			lit++
		}
	}
	if lit != 4 {
		t.Errorf("expected a dashed line of 4 dots, got %d", lit)
	}
}

func TestProgressBar(t *testing.T) {
	for _, p := range []float64{-1, 0, 0.5, 1, 2} {
		bar := ProgressBar(p, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("progress %g: expected 10 cells, got %d", p, n)
		}
	}
}

func TestSparkline(t *testing.T) {
	s := Sparkline([]float64{1, 2, 3, 4}, 4)
	if s != "▁▃▅█" {
		t.Errorf("unexpected sparkline %q", s)
	}
	if Sparkline(nil, 3) != "───" {
		t.Error("empty sparkline should be a rule")
	}
}

func TestLossChart(t *testing.T) {
	if LossChart(nil, []float64{1}, 20, 4) != "" {
		t.Error("expected empty chart for short series")
	}
	chart := LossChart([]float64{0, -1, -2}, []float64{0, -2, -4}, 20, 4)
	if !strings.Contains(chart, "NN / PINN") {
		t.Errorf("missing caption in %q", chart)
	}
}

func TestLogLosses(t *testing.T) {
	got := LogLosses([]train.Loss{{Total: 100}, {Total: 0}})
	if math.Abs(got[0]-2) > 1e-12 || math.Abs(got[1]+12) > 1e-12 {
		t.Errorf("unexpected log losses %v", got)
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme("lab")
	for range Themes {
		NextTheme()
	}
	if CurrentTheme.Name != "lab" {
		t.Errorf("expected to cycle back to lab, got %s", CurrentTheme.Name)
	}
	if GetTheme("missing").Name != "lab" {
		t.Error("unknown theme should fall back to lab")
	}
}

func testSession(t *testing.T, iters int) *experiment.Session {
	t.Helper()
	tc := train.DefaultConfig()
	tc.Iterations = iters
	tc.LogEvery = 0
	s, err := experiment.New(experiment.Config{
		Integrator: "rk4",
		Law:        decay.Default(),
		Data:       dataset.DefaultConfig(),
		Train:      tc,
	}).Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return s
}

func TestModelTrainsToCompletion(t *testing.T) {
	var m tea.Model = NewModel(context.Background(), testSession(t, 30), 10)

	for i := 0; i < 10; i++ {
		m, _ = m.Update(TickMsg{})
	}
	lm := m.(Model)
	if lm.Err() != nil {
		t.Fatalf("training failed: %v", lm.Err())
	}
	if lm.Outcome() == nil {
		t.Fatal("expected an outcome after the budget was used")
	}
	if !strings.Contains(lm.View(), "DONE") {
		t.Error("view should report completion")
	}
}

func TestModelKeys(t *testing.T) {
	var m tea.Model = NewModel(context.Background(), testSession(t, 30), 10)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m, _ = m.Update(TickMsg{})
	if m.(Model).session.Plain.Iter != 0 {
		t.Error("paused model should not train")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	if m.(Model).chunk != 20 {
		t.Errorf("expected chunk 20, got %d", m.(Model).chunk)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

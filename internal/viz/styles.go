package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are rebuilt from CurrentTheme so a theme switch applies on the next
// render.
func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Title)
}

func mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
}

func modelStyle(physics bool) lipgloss.Style {
	if physics {
		return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.PINN)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Plain)
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	keyHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
)

// Title renders a heading line.
func Title(s string) string { return titleStyle().Render(s) }

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle().Render(s) }

// ModelName renders NN or PINN in the model's color.
func ModelName(label string, physics bool) string { return modelStyle(physics).Render(label) }

// Status renders a colored status word.
func Status(s string, ok bool) string {
	c := CurrentTheme.Warning
	if ok {
		c = CurrentTheme.Good
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(s)
}

func Error(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Error).Render(s)
}

// KV renders an aligned label and value.
func KV(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// Panel wraps content in a rounded border with a title line.
func Panel(title, content string) string {
	return panelStyle.Render(Title(title) + "\n" + content)
}

// ProgressBar renders a bar filled to percent in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := CurrentTheme.Error
	switch {
	case percent >= 1:
		c = CurrentTheme.Good
	case percent > 0.4:
		c = CurrentTheme.Warning
	}
	return lipgloss.NewStyle().Foreground(c).Render(bar)
}

// Sparkline renders values as one row of block characters, sampled to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / span * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}

// Metrics renders a sorted key/value block.
func Metrics(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("245")).Render(k))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.6g", m[k])))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Separator is a decorated horizontal rule.
func Separator(width int) string {
	if width < 8 {
		return Muted(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	return Muted(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}

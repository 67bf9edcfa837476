package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// Unicode offset 0x2800.
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Window maps data coordinates onto a canvas.
type Window struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Canvas is a grid of Braille cells addressed in dots. A canvas of w x h
// cells has 2w x 4h dots with the origin at the top left.
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for j := range row {
			row[j] = brailleBlank
		}
	}
}

// Set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.cells[y/4][x/2]&dotBits[y%4][x%2] != 0
}

// DrawLine draws a segment with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// project maps a data point to dots. Points above or below the window are
// clamped to its edge so diverging curves stay visible.
func (c *Canvas) project(x, y float64, w Window) (int, int) {
	dotsX, dotsY := c.Width*2-1, c.Height*4-1
	fx := (x - w.XMin) / (w.XMax - w.XMin)
	fy := (y - w.YMin) / (w.YMax - w.YMin)
	fy = math.Max(0, math.Min(1, fy))
	return int(math.Round(fx * float64(dotsX))), int(math.Round((1 - fy) * float64(dotsY)))
}

// Curve connects consecutive points of (xs, ys).
func (c *Canvas) Curve(xs, ys []float64, w Window) {
	for i := range ys {
		if math.IsNaN(ys[i]) {
			continue
		}
		x1, y1 := c.project(xs[i], ys[i], w)
		if i == 0 || math.IsNaN(ys[i-1]) {
			c.Set(x1, y1)
			continue
		}
		x0, y0 := c.project(xs[i-1], ys[i-1], w)
		c.DrawLine(x0, y0, x1, y1)
	}
}

// Dotted marks every stride-th point of (xs, ys) without joining them.
func (c *Canvas) Dotted(xs, ys []float64, w Window, stride int) {
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(ys); i += stride {
		c.Set(c.project(xs[i], ys[i], w))
	}
}

// VLine draws a dashed vertical line at x.
func (c *Canvas) VLine(x float64, w Window) {
	px, _ := c.project(x, w.YMin, w)
	for y := 0; y < c.Height*4; y++ {
		if y%4 < 2 {
			c.Set(px, y)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

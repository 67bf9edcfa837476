// Package render draws the side-by-side extrapolation animation.
//
// Every frame holds two panels built with gonum/plot: the plain network on the
// left and the physics-informed network on the right. Each panel shows the
// true curve, the training observations, a marker at the training cutoff and
// the prediction revealed up to the frame's share of the grid.
package render

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	imgdraw "image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/evaluate"
)

const (
	DefaultFrames = 150
	DefaultFPS    = 30
	DefaultOutput = "pinn_vs_nn_extrapolation.gif"
)

var ErrNoFrames = errors.New("render: no frames")

var (
	truthColor  = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	plainColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	pinnColor   = color.RGBA{R: 0, G: 128, B: 128, A: 255}
	cutoffColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	gridColor   = color.RGBA{R: 225, G: 225, B: 225, A: 255}
)

// Palette covers every color the panels use plus the gray ramp that
// anti-aliased text and lines fall on.
var Palette = buildPalette()

func buildPalette() color.Palette {
	p := color.Palette{
		color.White,
		color.Black,
		truthColor,
		plainColor,
		pinnColor,
		cutoffColor,
		gridColor,
		color.RGBA{R: 163, G: 193, B: 218, A: 255},
		color.RGBA{R: 128, G: 192, B: 192, A: 255},
		color.RGBA{R: 238, G: 143, B: 143, A: 255},
	}
	for _, v := range []uint8{40, 80, 120, 160, 200, 240} {
		p = append(p, color.RGBA{R: v, G: v, B: v, A: 255})
	}
	return p
}

type Animation struct {
	Frames     int
	FPS        int
	Width      vg.Length
	Height     vg.Length
	DPI        int
	YMin, YMax float64
	Title      string
	PlainTitle string
	PINNTitle  string
}

func DefaultAnimation() Animation {
	return Animation{
		Frames:     DefaultFrames,
		FPS:        DefaultFPS,
		Width:      12 * vg.Inch,
		Height:     5.25 * vg.Inch,
		DPI:        72,
		YMin:       -0.2,
		YMax:       1.2,
		Title:      "Extrapolation Test: Standard NN vs. PINN",
		PlainTitle: "1. NN: Fails catastrophically to extrapolate",
		PINNTitle:  "2. PINN: Successfully extrapolates using physics",
	}
}

// FrameCount is how many grid points are revealed at frame (0-based). The
// last frame always reveals the whole grid.
func FrameCount(frame, frames, n int) int {
	if frames <= 0 {
		return n
	}
	k := int(float64(frame+1) / float64(frames) * float64(n))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	return k
}

// Render draws every frame of the animation.
func (a Animation) Render(r *evaluate.Report, obs []dataset.Observation) ([]*image.Paletted, error) {
	if a.Frames <= 0 {
		return nil, ErrNoFrames
	}
	frames := make([]*image.Paletted, 0, a.Frames)
	for f := 0; f < a.Frames; f++ {
		img, err := a.Frame(r, obs, FrameCount(f, a.Frames, len(r.Grid)))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f, err)
		}
		frames = append(frames, quantize(img))
	}
	return frames, nil
}

// Frame draws one frame with the first n grid points of each prediction.
func (a Animation) Frame(r *evaluate.Report, obs []dataset.Observation, n int) (image.Image, error) {
	c, err := a.canvas(r, obs, n)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

func (a Animation) canvas(r *evaluate.Report, obs []dataset.Observation, n int) (*vgimg.Canvas, error) {
	c := vgimg.NewWith(vgimg.UseWH(a.Width, a.Height), vgimg.UseDPI(a.DPI))
	if err := a.draw(draw.New(c), r, obs, n); err != nil {
		return nil, err
	}
	return c, nil
}

// draw lays out the title and both panels on dc.
func (a Animation) draw(dc draw.Canvas, r *evaluate.Report, obs []dataset.Observation, n int) error {
	if n < 0 || n > len(r.Grid) {
		return fmt.Errorf("reveal %d outside grid of %d", n, len(r.Grid))
	}
	left, err := a.panel(r, obs, a.PlainTitle, "NN Prediction", r.Plain[:n], plainColor)
	if err != nil {
		return err
	}
	right, err := a.panel(r, obs, a.PINNTitle, "PINN Prediction", r.PINN[:n], pinnColor)
	if err != nil {
		return err
	}
	right.Y.Label.Text = ""

	titleHeight := vg.Points(30)
	if a.Title != "" {
		sty := left.Title.TextStyle
		sty.Font.Size = vg.Points(18)
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YTop
		dc.FillText(sty, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Points(6)}, a.Title)
	}
	body := draw.Crop(dc, 0, 0, 0, -titleHeight)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Points(18),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(12),
		PadBottom: vg.Points(6),
	}
	canvases := plot.Align([][]*plot.Plot{{left, right}}, tiles, body)
	left.Draw(canvases[0][0])
	right.Draw(canvases[0][1])
	return nil
}

func (a Animation) panel(r *evaluate.Report, obs []dataset.Observation, title, predLabel string, pred []float64, predColor color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Concentration [A]"
	p.Legend.Top = true

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	grid.Vertical.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
	p.Add(grid)

	truth, err := plotter.NewLine(xys(r.Grid, r.Truth))
	if err != nil {
		return nil, err
	}
	truth.LineStyle.Color = truthColor
	truth.LineStyle.Width = vg.Points(2)
	truth.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(truth)

	pts := make(plotter.XYs, len(obs))
	for i, o := range obs {
		pts[i].X, pts[i].Y = o.T, o.A
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Shape = draw.RingGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(4)
	scatter.GlyphStyle.Color = color.Black
	p.Add(scatter)

	prediction, err := plotter.NewLine(xys(r.Grid[:len(pred)], pred))
	if err != nil {
		return nil, err
	}
	prediction.LineStyle.Color = predColor
	prediction.LineStyle.Width = vg.Points(2.5)
	if len(pred) > 1 {
		p.Add(prediction)
	}

	cutoff, err := plotter.NewLine(plotter.XYs{{X: r.Cutoff, Y: a.YMin}, {X: r.Cutoff, Y: a.YMax}})
	if err != nil {
		return nil, err
	}
	cutoff.LineStyle.Color = cutoffColor
	cutoff.LineStyle.Width = vg.Points(1.5)
	cutoff.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	p.Add(cutoff)

	p.Legend.Add("Real Process", truth)
	p.Legend.Add("Training Data", scatter)
	p.Legend.Add(predLabel, prediction)
	p.Legend.Add("Extrapolation Start", cutoff)

	// Add widens the axes to the data, so the fixed window is set last.
	p.X.Min, p.X.Max = r.Grid[0], r.Grid[len(r.Grid)-1]
	p.Y.Min, p.Y.Max = a.YMin, a.YMax
	return p, nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i := range ys {
		pts[i].X, pts[i].Y = xs[i], ys[i]
	}
	return pts
}

func quantize(img image.Image) *image.Paletted {
	dst := image.NewPaletted(img.Bounds(), Palette)
	imgdraw.Draw(dst, dst.Rect, img, img.Bounds().Min, imgdraw.Src)
	return dst
}

// EncodeGIF writes frames as a looping animated GIF at fps.
func EncodeGIF(path string, frames []*image.Paletted, fps int) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	delay := 100 / fps
	if delay < 1 {
		delay = 1
	}

	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := gif.EncodeAll(bw, &anim); err != nil {
		return err
	}
	return bw.Flush()
}

// Save renders the animation and writes it to path.
func (a Animation) Save(path string, r *evaluate.Report, obs []dataset.Observation) error {
	frames, err := a.Render(r, obs)
	if err != nil {
		return err
	}
	return EncodeGIF(path, frames, a.FPS)
}

// SaveStill writes the fully revealed last frame. The format follows the
// file extension: png, jpg, svg, pdf, eps or tif.
func (a Animation) SaveStill(path string, r *evaluate.Report, obs []dataset.Observation) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("still %s: missing file extension", path)
	}
	c, err := draw.NewFormattedCanvas(a.Width, a.Height, format)
	if err != nil {
		return fmt.Errorf("still %s: %w", path, err)
	}
	if err := a.draw(draw.New(c), r, obs, len(r.Grid)); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create still: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := c.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write still: %w", err)
	}
	return bw.Flush()
}

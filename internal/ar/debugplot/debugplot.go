// Package debugplot renders a top-down (world X/Z) snapshot of the tracked
// planes and anchors to an image, for debugging sessions off device.
package debugplot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/arlayer/internal/ar"
)

// Source is the read-only trackable and anchor view a snapshot is taken
// from. *frame.Driver satisfies it.
type Source interface {
	TrackableCount() int
	TrackableType(i int) (ar.PlaneType, error)
	TrackableSelected(i int) (bool, error)
	TrackablePolygon(i int, buf []float32) ([]float32, error)
	TrackableMatrix(i int, dst *mgl32.Mat4) (*mgl32.Mat4, error)
	AnchorCount() int
	AnchorMatrix(id int, dst *mgl32.Mat4) (*mgl32.Mat4, error)
}

var (
	selectedColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	anchorColor   = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	typeColors    = map[ar.PlaneType]color.Color{
		ar.PlaneFloor:   color.RGBA{R: 40, G: 120, B: 220, A: 255},
		ar.PlaneCeiling: color.RGBA{R: 140, G: 80, B: 200, A: 255},
		ar.PlaneWall:    color.RGBA{R: 40, G: 170, B: 90, A: 255},
		ar.PlaneUnknown: color.Gray{Y: 128},
	}
)

// WorldOutline maps a flat local (x, z) polygon through a plane transform
// and returns the closed outline projected onto world X/Z.
func WorldOutline(polygon []float32, m mgl32.Mat4) plotter.XYs {
	n := len(polygon) / 2
	if n == 0 {
		return nil
	}
	pts := make(plotter.XYs, 0, n+1)
	for i := 0; i < n; i++ {
		w := m.Mul4x1(mgl32.Vec4{polygon[2*i], 0, polygon[2*i+1], 1})
		pts = append(pts, plotter.XY{X: float64(w.X()), Y: float64(w.Z())})
	}
	return append(pts, pts[0])
}

// Build draws every trackable outline and every bound anchor.
func Build(src Source, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "world X (m)"
	p.Y.Label.Text = "world Z (m)"
	p.Add(plotter.NewGrid())

	var (
		buf []float32
		m   mgl32.Mat4
	)
	for i := 0; i < src.TrackableCount(); i++ {
		var err error
		if buf, err = src.TrackablePolygon(i, buf); err != nil {
			return nil, err
		}
		if _, err = src.TrackableMatrix(i, &m); err != nil {
			return nil, err
		}
		typ, err := src.TrackableType(i)
		if err != nil {
			return nil, err
		}
		selected, err := src.TrackableSelected(i)
		if err != nil {
			return nil, err
		}

		outline := WorldOutline(buf, m)
		if len(outline) < 2 {
			continue
		}
		line, err := plotter.NewLine(outline)
		if err != nil {
			return nil, fmt.Errorf("outline of trackable %d: %w", i, err)
		}
		line.Color = typeColors[typ]
		line.Width = vg.Points(1)
		label := fmt.Sprintf("%d %s", i, typ)
		if selected {
			line.Color = selectedColor
			line.Width = vg.Points(2)
			label += " (selected)"
		}
		p.Add(line)
		p.Legend.Add(label, line)
	}

	var anchors plotter.XYs
	for id := 0; id < src.AnchorCount(); id++ {
		if _, err := src.AnchorMatrix(id, &m); err != nil {
			// Unbound selection slot.
			continue
		}
		t := m.Col(3)
		anchors = append(anchors, plotter.XY{X: float64(t.X()), Y: float64(t.Z())})
	}
	if len(anchors) > 0 {
		sc, err := plotter.NewScatter(anchors)
		if err != nil {
			return nil, fmt.Errorf("anchors: %w", err)
		}
		sc.GlyphStyle.Color = anchorColor
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("anchors", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save writes a snapshot image to path. The format follows the file
// extension (png, svg, pdf, ...).
func Save(src Source, title, path string) error {
	p, err := Build(src, title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

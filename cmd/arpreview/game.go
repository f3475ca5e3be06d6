package main

import (
	"context"
	"fmt"
	"image/color"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/banshee-data/arlayer/internal/ar"
	"github.com/banshee-data/arlayer/internal/ar/debugplot"
	"github.com/banshee-data/arlayer/internal/ar/frame"
	"github.com/banshee-data/arlayer/internal/ar/simsession"
	"github.com/banshee-data/arlayer/internal/render"
)

const (
	walkStep = 0.05
	turnStep = 0.03
	// The floor is refined every growEvery ticks until it reaches maxFloor.
	growEvery = 180
	maxFloor  = 8
)

var (
	statusColors = map[ar.Status]color.Color{
		ar.StatusCreated:  color.RGBA{R: 255, G: 220, B: 0, A: 255},
		ar.StatusUpdated:  color.RGBA{R: 0, G: 200, B: 255, A: 255},
		ar.StatusTracking: color.RGBA{R: 200, G: 200, B: 200, A: 255},
		ar.StatusPaused:   color.RGBA{R: 120, G: 120, B: 120, A: 255},
	}
	selectedColor = color.RGBA{R: 255, G: 60, B: 60, A: 255}
	anchorColor   = color.RGBA{R: 60, G: 255, B: 120, A: 255}
)

type game struct {
	ctx   context.Context
	d     *frame.Driver
	r     *render.Software
	sim   *simsession.Session
	scene simsession.Scene
	rig   simsession.Rig

	plotPath  string
	floorSize float32
	ticks     int
	err       error
	poly      []float32

	// pending is set between Advance and the Draw that renders it; ebiten
	// may run several Updates per Draw.
	pending bool
}

func newGame(ctx context.Context, d *frame.Driver, r *render.Software, sim *simsession.Session, scene simsession.Scene, plotPath string) *game {
	return &game{
		ctx:       ctx,
		d:         d,
		r:         r,
		sim:       sim,
		scene:     scene,
		plotPath:  plotPath,
		floorSize: scene.Floor.ExtentX(),
	}
}

func (g *game) Update() error {
	if g.err != nil {
		return g.err
	}
	g.handleInput()

	g.ticks++
	if g.ticks%growEvery == 0 && g.floorSize < maxFloor {
		g.floorSize++
		g.sim.SetPolygon(g.scene.Floor, simsession.RectPolygon(g.floorSize, g.floorSize))
	}
	g.sim.SetCameraPose(g.rig.Pose())

	if g.pending {
		return nil
	}
	if err := g.d.Advance(g.ctx); err != nil {
		return err
	}
	g.pending = true
	return nil
}

func (g *game) handleInput() {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if !g.d.Taps().OfferXY(float32(x), float32(y)) {
			log.Printf("tap queue full, tap at %d,%d dropped", x, y)
		}
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.rig.Walk(walkStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.rig.Walk(-walkStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.rig.Turn(turnStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.rig.Turn(-turnStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.d.CreateSelectionAnchor()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.anchorSelected()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.saveSnapshot()
	}
}

func (g *game) anchorSelected() {
	i := g.d.Registry().SelectedIndex()
	if i < 0 {
		log.Printf("nothing selected")
		return
	}
	if _, err := g.d.CreateAnchor(i, 0, 0, 0); err != nil {
		log.Printf("create anchor: %v", err)
	}
}

func (g *game) saveSnapshot() {
	if g.plotPath == "" {
		return
	}
	if err := debugplot.Save(g.d, "arpreview", g.plotPath); err != nil {
		log.Printf("snapshot: %v", err)
		return
	}
	log.Printf("wrote %s", g.plotPath)
}

func (g *game) Draw(screen *ebiten.Image) {
	if !g.pending {
		return
	}
	g.pending = false
	if err := g.d.BeginFrame(); err != nil {
		g.err = err
		return
	}
	screen.Fill(color.Gray{Y: uint8(g.r.BackgroundGray())})

	for i := 0; i < g.d.TrackableCount(); i++ {
		if err := g.drawTrackable(screen, i); err != nil {
			g.err = err
		}
	}
	for id := 0; id < g.d.AnchorCount(); id++ {
		g.drawAnchor(screen, id)
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf("planes %d  anchors %d  selected %d  gen %d\ndropped taps %d",
		g.d.TrackableCount(), g.d.AnchorCount(), g.d.Registry().SelectedIndex(),
		g.d.Registry().Generation(), g.d.Taps().Dropped()))

	if err := g.d.EndFrame(); err != nil {
		g.err = err
	}
}

func (g *game) drawTrackable(screen *ebiten.Image, i int) error {
	var m mgl32.Mat4
	if _, err := g.d.TrackableMatrix(i, &m); err != nil {
		return err
	}
	poly, err := g.d.TrackablePolygon(i, g.poly)
	if err != nil {
		return err
	}
	g.poly = poly
	status, err := g.d.TrackableStatus(i)
	if err != nil {
		return err
	}
	selected, err := g.d.TrackableSelected(i)
	if err != nil {
		return err
	}
	clr, ok := statusColors[status]
	if !ok {
		clr = color.White
	}
	width := float32(1)
	if selected {
		clr, width = selectedColor, 3
	}

	g.r.PushMatrix()
	defer g.popMatrix()
	g.r.ApplyMatrix(m)

	n := len(poly) / 2
	for j := 0; j < n; j++ {
		k := (j + 1) % n
		x0, y0, ok0 := g.r.Project(mgl32.Vec3{poly[2*j], 0, poly[2*j+1]})
		x1, y1, ok1 := g.r.Project(mgl32.Vec3{poly[2*k], 0, poly[2*k+1]})
		if ok0 && ok1 {
			vector.StrokeLine(screen, x0, y0, x1, y1, width, clr, true)
		}
	}
	return nil
}

func (g *game) popMatrix() {
	if err := g.r.PopMatrix(); err != nil {
		log.Printf("pop matrix: %v", err)
	}
}

// drawAnchor draws a small axis cross in anchor space.
func (g *game) drawAnchor(screen *ebiten.Image, id int) {
	g.r.PushMatrix()
	defer g.popMatrix()
	if err := g.d.Anchor(id); err != nil {
		// Unbound selection slot.
		return
	}
	ox, oy, ok := g.r.Project(mgl32.Vec3{})
	if !ok {
		return
	}
	vector.DrawFilledCircle(screen, ox, oy, 4, anchorColor, true)
	for _, axis := range []mgl32.Vec3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}} {
		if x, y, ok := g.r.Project(axis); ok {
			vector.StrokeLine(screen, ox, oy, x, y, 2, anchorColor, true)
		}
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.r.Size()
}

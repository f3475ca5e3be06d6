package frame

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar"
	"github.com/banshee-data/arlayer/internal/ar/anchors"
	"github.com/banshee-data/arlayer/internal/ar/selection"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/ar/trackables"
	"github.com/banshee-data/arlayer/internal/config"
	"github.com/banshee-data/arlayer/internal/monitoring"
)

var (
	// ErrFrameSequence is returned when Advance, BeginFrame and EndFrame
	// are called out of order or re-entrantly.
	ErrFrameSequence = errors.New("frame lifecycle called out of order")
	// ErrNotInitialized is returned by BeginFrame before Init.
	ErrNotInitialized = errors.New("background renderer not initialised")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("background renderer already initialised")
)

type phase int

const (
	phaseIdle     phase = iota // waiting for Advance
	phaseAdvanced              // frame acquired, waiting for BeginFrame
	phaseDrawing               // between BeginFrame and EndFrame
)

func (p phase) String() string {
	switch p {
	case phaseAdvanced:
		return "advanced"
	case phaseDrawing:
		return "drawing"
	default:
		return "idle"
	}
}

// Options configures a Driver.
type Options struct {
	NearClip       float32
	FarClip        float32
	BackgroundGray float32

	// LogLifecycle logs trackable additions, removals and selections.
	LogLifecycle bool

	TapQueueCapacity int
	TapOverflow      selection.OverflowPolicy

	// Extra observers, e.g. the journal (optional).
	TrackableObserver trackables.Observer
	AnchorObserver    anchors.Observer
}

// OptionsFromConfig builds driver options from a loaded Config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := selection.ParseOverflowPolicy(cfg.GetTapOverflowPolicy())
	if err != nil {
		return Options{}, err
	}
	return Options{
		NearClip:         float32(cfg.GetNearClip()),
		FarClip:          float32(cfg.GetFarClip()),
		BackgroundGray:   float32(cfg.GetBackgroundGray()),
		LogLifecycle:     cfg.GetLogLifecycle(),
		TapQueueCapacity: cfg.GetTapQueueCapacity(),
		TapOverflow:      policy,
	}, nil
}

// Driver runs the per-frame AR lifecycle on top of a Renderer and a
// tracking Session. Apart from Taps().Offer, every method must be called
// from the render goroutine.
type Driver struct {
	renderer      Renderer
	session       session.Session
	newBackground BackgroundFactory
	background    BackgroundRenderer

	registry *trackables.Registry
	anchors  *anchors.Manager
	resolver *selection.Resolver
	taps     *selection.TapQueue

	opts Options

	frame      session.Frame
	projection mgl32.Mat4
	view       mgl32.Mat4
	phase      phase
}

// NewDriver wires a driver. The background renderer is created later by Init.
func NewDriver(r Renderer, s session.Session, bg BackgroundFactory, opts Options) (*Driver, error) {
	if opts.TapQueueCapacity == 0 {
		opts.TapQueueCapacity = config.EmptyConfig().GetTapQueueCapacity()
	}
	if opts.NearClip == 0 && opts.FarClip == 0 {
		opts.NearClip = float32(config.EmptyConfig().GetNearClip())
		opts.FarClip = float32(config.EmptyConfig().GetFarClip())
	}
	taps, err := selection.NewTapQueue(opts.TapQueueCapacity, opts.TapOverflow)
	if err != nil {
		return nil, err
	}

	registry := trackables.NewRegistry()
	var obs trackables.Observers
	if opts.LogLifecycle {
		obs = append(obs, trackables.LogObserver{})
	}
	if opts.TrackableObserver != nil {
		obs = append(obs, opts.TrackableObserver)
	}
	if len(obs) > 0 {
		registry.Observer = obs
	}

	am := anchors.NewManager(registry)
	am.Observer = opts.AnchorObserver

	return &Driver{
		renderer:      r,
		session:       s,
		newBackground: bg,
		registry:      registry,
		anchors:       am,
		resolver:      selection.NewResolver(registry, am),
		taps:          taps,
		opts:          opts,
		projection:    mgl32.Ident4(),
		view:          mgl32.Ident4(),
	}, nil
}

// Init creates the background renderer and hands its texture to the
// session. It must be called once, after the display exists.
func (d *Driver) Init(display DisplayContext) error {
	if d.background != nil {
		return ErrAlreadyInitialized
	}
	bg, err := d.newBackground(display)
	if err != nil {
		return fmt.Errorf("create background renderer: %w", err)
	}
	d.background = bg
	d.session.SetCameraTextureName(bg.TextureID())
	return nil
}

// Advance acquires the next frame from the session and folds it into the
// registry, then resolves at most one pending tap. Session errors are
// returned unchanged in meaning; nothing is retried.
func (d *Driver) Advance(ctx context.Context) error {
	if d.phase != phaseIdle {
		return fmt.Errorf("%w: Advance during %s", ErrFrameSequence, d.phase)
	}
	f, err := d.session.Update(ctx)
	if err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	d.frame = f
	d.updateMatrices(f.Camera())
	d.registry.Update(f)

	if _, err := d.resolver.Resolve(f, d.taps); err != nil {
		// Selection itself succeeded; only the anchor could not be bound.
		monitoring.Logf("[ar] %v", err)
	}
	d.phase = phaseAdvanced
	return nil
}

func (d *Driver) updateMatrices(cam session.Camera) {
	if cam == nil {
		return
	}
	d.projection = cam.ProjectionMatrix(d.opts.NearClip, d.opts.FarClip)
	d.view = cam.ViewMatrix()
}

// BeginFrame resets the transform stack to projection * view, clears the
// colour buffer and draws the camera background.
func (d *Driver) BeginFrame() error {
	if d.phase != phaseAdvanced {
		return fmt.Errorf("%w: BeginFrame during %s", ErrFrameSequence, d.phase)
	}
	if d.background == nil {
		return ErrNotInitialized
	}
	d.phase = phaseDrawing

	d.renderer.BeginDraw()
	d.renderer.ResetProjection()
	d.renderer.ResetMatrix()
	d.renderer.ApplyProjection(d.projection)
	d.renderer.ApplyMatrix(d.view)

	d.renderer.Background(d.opts.BackgroundGray)
	if err := d.background.Draw(d.frame); err != nil {
		return fmt.Errorf("draw camera background: %w", err)
	}
	return nil
}

// EndFrame clears the per-frame trackable status and finishes drawing.
func (d *Driver) EndFrame() error {
	if d.phase != phaseDrawing {
		return fmt.Errorf("%w: EndFrame during %s", ErrFrameSequence, d.phase)
	}
	d.registry.EndFrame()
	d.renderer.EndDraw()
	d.phase = phaseIdle
	return nil
}

// RunFrame performs one full cycle, calling draw between BeginFrame and
// EndFrame. EndFrame runs even when draw fails.
func (d *Driver) RunFrame(ctx context.Context, draw func(*Driver) error) error {
	if err := d.Advance(ctx); err != nil {
		return err
	}
	if err := d.BeginFrame(); err != nil {
		if d.phase == phaseDrawing {
			_ = d.EndFrame()
		} else {
			d.abortFrame()
		}
		return err
	}
	var drawErr error
	if draw != nil {
		drawErr = draw(d)
	}
	if err := d.EndFrame(); err != nil {
		return err
	}
	return drawErr
}

// abortFrame closes a frame that advanced but never started drawing. The
// registry generation still moves on so CREATED lasts a single frame.
func (d *Driver) abortFrame() {
	d.registry.EndFrame()
	d.phase = phaseIdle
}

// Anchor post-multiplies the current modelview by the anchor's world
// pose. Called right after BeginFrame (or inside a push/pop pair) the
// modelview becomes view * anchor, so subsequent drawing is in anchor space.
// It is only valid between BeginFrame and EndFrame.
func (d *Driver) Anchor(id int) error {
	if d.phase != phaseDrawing {
		return fmt.Errorf("%w: Anchor during %s", ErrFrameSequence, d.phase)
	}
	m, err := d.anchors.Matrix(id, nil)
	if err != nil {
		return err
	}
	d.renderer.ApplyMatrix(*m)
	return nil
}

// Camera is not supported: the camera pose comes from the tracking session.
func (d *Driver) Camera(eyeX, eyeY, eyeZ, centerX, centerY, centerZ, upX, upY, upZ float32) {
	monitoring.Warnf("The camera cannot be set in AR")
}

// Perspective is not supported: the projection comes from the tracking session.
func (d *Driver) Perspective(fov, aspect, zNear, zFar float32) {
	monitoring.Warnf("Perspective cannot be set in AR")
}

// Lights forwards to the renderer's default lighting when it has one.
func (d *Driver) Lights() {
	if l, ok := d.renderer.(Lighter); ok {
		l.Lights()
	}
}

// Taps returns the tap queue input delivery should offer taps to.
func (d *Driver) Taps() *selection.TapQueue { return d.taps }

// Registry exposes the trackable registry.
func (d *Driver) Registry() *trackables.Registry { return d.registry }

// Anchors exposes the anchor manager.
func (d *Driver) Anchors() *anchors.Manager { return d.anchors }

// Frame returns the most recently acquired session frame, or nil.
func (d *Driver) Frame() session.Frame { return d.frame }

// Projection returns the projection matrix of the latest frame.
func (d *Driver) Projection() mgl32.Mat4 { return d.projection }

// View returns the view matrix of the latest frame.
func (d *Driver) View() mgl32.Mat4 { return d.view }

// TrackableCount returns the number of tracked planes.
func (d *Driver) TrackableCount() int { return d.registry.Count() }

// TrackableID returns the handle of trackable i.
func (d *Driver) TrackableID(i int) (session.Handle, error) { return d.registry.Handle(i) }

// TrackableType returns the plane type of trackable i.
func (d *Driver) TrackableType(i int) (ar.PlaneType, error) { return d.registry.Type(i) }

// TrackableStatus returns the per-frame status of trackable i.
func (d *Driver) TrackableStatus(i int) (ar.Status, error) { return d.registry.Status(i) }

// TrackableSelected reports whether trackable i is selected.
func (d *Driver) TrackableSelected(i int) (bool, error) { return d.registry.Selected(i) }

// TrackableExtentX returns the X extent of trackable i.
func (d *Driver) TrackableExtentX(i int) (float32, error) { return d.registry.ExtentX(i) }

// TrackableExtentZ returns the Z extent of trackable i.
func (d *Driver) TrackableExtentZ(i int) (float32, error) { return d.registry.ExtentZ(i) }

// TrackablePolygon copies the boundary of trackable i into buf.
func (d *Driver) TrackablePolygon(i int, buf []float32) ([]float32, error) {
	return d.registry.Polygon(i, buf)
}

// TrackableMatrix copies the world transform of trackable i into dst.
func (d *Driver) TrackableMatrix(i int, dst *mgl32.Mat4) (*mgl32.Mat4, error) {
	return d.registry.Matrix(i, dst)
}

// AnchorCount returns the number of anchor slots.
func (d *Driver) AnchorCount() int { return d.anchors.Count() }

// AnchorID returns the identifier of anchor i.
func (d *Driver) AnchorID(i int) int { return d.anchors.ID(i) }

// AnchorStatus returns the status of anchor id.
func (d *Driver) AnchorStatus(id int) (ar.Status, error) { return d.anchors.Status(id) }

// CreateSelectionAnchor reserves the anchor slot that follows the selected plane.
func (d *Driver) CreateSelectionAnchor() int { return d.anchors.CreateSelectionAnchor() }

// CreateAnchor anchors onto trackable i at the plane-local point (x, y, z).
func (d *Driver) CreateAnchor(i int, x, y, z float32) (int, error) {
	return d.anchors.CreateAnchor(i, x, y, z)
}

// CreateAnchorOn anchors onto the trackable with handle h.
func (d *Driver) CreateAnchorOn(h session.Handle, x, y, z float32) (int, error) {
	return d.anchors.CreateAnchorOn(h, x, y, z)
}

// DeleteAnchor is accepted and ignored.
func (d *Driver) DeleteAnchor(id int) { d.anchors.DeleteAnchor(id) }

// AnchorMatrix copies the world transform of anchor id into dst.
func (d *Driver) AnchorMatrix(id int, dst *mgl32.Mat4) (*mgl32.Mat4, error) {
	return d.anchors.Matrix(id, dst)
}

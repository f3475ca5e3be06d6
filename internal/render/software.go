// Package render provides a software transform-stack renderer. It keeps
// the projection and modelview matrices the way an immediate-mode 3D
// renderer does and projects points to window coordinates, so the AR
// frame driver can run headless and under the desktop preview.
package render

import (
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar/frame"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

// ErrStackUnderflow is returned by PopMatrix without a matching PushMatrix.
var ErrStackUnderflow = errors.New("matrix stack underflow")

// Software is a frame.Renderer without a GPU.
type Software struct {
	width  int
	height int

	projection mgl32.Mat4
	modelview  mgl32.Mat4
	stack      []mgl32.Mat4

	gray    float32
	lights  bool
	drawing bool
	frames  int
}

var (
	_ frame.Renderer = (*Software)(nil)
	_ frame.Lighter  = (*Software)(nil)
)

// NewSoftware creates a renderer for a width x height viewport.
func NewSoftware(width, height int) *Software {
	return &Software{
		width:      width,
		height:     height,
		projection: mgl32.Ident4(),
		modelview:  mgl32.Ident4(),
	}
}

// BeginDraw starts a frame. Lighting is off until Lights is called.
func (r *Software) BeginDraw() {
	r.drawing = true
	r.lights = false
	r.stack = r.stack[:0]
}

// EndDraw finishes a frame.
func (r *Software) EndDraw() {
	r.drawing = false
	r.frames++
}

func (r *Software) ResetProjection()             { r.projection = mgl32.Ident4() }
func (r *Software) ResetMatrix()                 { r.modelview = mgl32.Ident4() }
func (r *Software) ApplyProjection(m mgl32.Mat4) { r.projection = r.projection.Mul4(m) }
func (r *Software) ApplyMatrix(m mgl32.Mat4)     { r.modelview = r.modelview.Mul4(m) }
func (r *Software) Background(gray float32)      { r.gray = gray }
func (r *Software) Lights()                      { r.lights = true }

// PushMatrix saves the current modelview.
func (r *Software) PushMatrix() {
	r.stack = append(r.stack, r.modelview)
}

// PopMatrix restores the most recently pushed modelview.
func (r *Software) PopMatrix() error {
	if len(r.stack) == 0 {
		return ErrStackUnderflow
	}
	r.modelview = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Translate post-multiplies the modelview by a translation.
func (r *Software) Translate(x, y, z float32) {
	r.ApplyMatrix(mgl32.Translate3D(x, y, z))
}

// RotateY post-multiplies the modelview by a rotation about Y in radians.
func (r *Software) RotateY(angle float32) {
	r.ApplyMatrix(mgl32.HomogRotate3DY(angle))
}

// Scale post-multiplies the modelview by a uniform scale.
func (r *Software) Scale(s float32) {
	r.ApplyMatrix(mgl32.Scale3D(s, s, s))
}

// Project maps a point in the current model space to window coordinates
// with the origin at the top left. ok is false for points behind the
// camera or outside the depth range.
func (r *Software) Project(p mgl32.Vec3) (x, y float32, ok bool) {
	clip := r.projection.Mul4(r.modelview).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	win := mgl32.Project(p, r.modelview, r.projection, 0, 0, r.width, r.height)
	if win.Z() < 0 || win.Z() > 1 {
		return 0, 0, false
	}
	return win.X(), float32(r.height) - win.Y(), true
}

// Resize changes the viewport.
func (r *Software) Resize(width, height int) {
	r.width, r.height = width, height
}

// Size returns the viewport size.
func (r *Software) Size() (int, int) { return r.width, r.height }

func (r *Software) Projection() mgl32.Mat4 { return r.projection }
func (r *Software) Modelview() mgl32.Mat4  { return r.modelview }

// BackgroundGray is the grey level of the last clear.
func (r *Software) BackgroundGray() float32 { return r.gray }

// LightsOn reports whether Lights was called this frame.
func (r *Software) LightsOn() bool { return r.lights }

// Drawing reports whether the renderer is between BeginDraw and EndDraw.
func (r *Software) Drawing() bool { return r.drawing }

// Frames returns the number of completed frames.
func (r *Software) Frames() int { return r.frames }

// CameraBackground stands in for the camera image: it owns a texture id
// for the session and counts the frames it was asked to draw.
type CameraBackground struct {
	mu        sync.Mutex
	texture   uint32
	drawn     int
	lastFrame int64
}

var _ frame.BackgroundRenderer = (*CameraBackground)(nil)

// NewCameraBackground returns a background with the given texture id.
func NewCameraBackground(texture uint32) *CameraBackground {
	return &CameraBackground{texture: texture}
}

// CameraBackgroundFactory returns a frame.BackgroundFactory that always
// yields bg.
func CameraBackgroundFactory(bg *CameraBackground) frame.BackgroundFactory {
	return func(frame.DisplayContext) (frame.BackgroundRenderer, error) {
		return bg, nil
	}
}

func (b *CameraBackground) TextureID() uint32 { return b.texture }

// Draw records the frame the camera image would be taken from.
func (b *CameraBackground) Draw(f session.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drawn++
	if f != nil {
		b.lastFrame = f.Timestamp()
	}
	return nil
}

// Drawn returns how many times Draw was called and the last frame timestamp.
func (b *CameraBackground) Drawn() (int, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drawn, b.lastFrame
}

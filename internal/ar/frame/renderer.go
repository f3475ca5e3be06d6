package frame

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar/session"
)

// Renderer is the 3D renderer capability the driver draws through. The
// transform stack semantics follow immediate-mode renderers: ApplyMatrix
// post-multiplies the current modelview.
type Renderer interface {
	BeginDraw()
	EndDraw()

	ResetProjection()
	ResetMatrix()
	ApplyProjection(m mgl32.Mat4)
	ApplyMatrix(m mgl32.Mat4)

	// Background clears the colour buffer to a grey level (0-255).
	Background(gray float32)
}

// Lighter is implemented by renderers with a default lighting setup.
type Lighter interface {
	Lights()
}

// BackgroundRenderer draws the camera image behind the scene.
type BackgroundRenderer interface {
	// TextureID is the texture the session streams camera images into.
	TextureID() uint32
	Draw(frame session.Frame) error
}

// DisplayContext is the platform display/activity handle needed to
// create the camera texture. Its concrete type is platform specific.
type DisplayContext any

// BackgroundFactory creates the background renderer during Init.
type BackgroundFactory func(display DisplayContext) (BackgroundRenderer, error)

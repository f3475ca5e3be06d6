// Package session defines the contract of the external AR tracking service.
//
// Everything here is implemented outside this module (ARCore on device,
// simsession in tests and the desktop preview). The AR layer never
// estimates poses or detects planes itself; it only consumes what a
// Frame reports.
package session

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar/pose"
)

// TrackingState is the service's confidence/lifecycle classification.
type TrackingState int

const (
	Tracking TrackingState = iota
	Paused
	Stopped
)

func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "TRACKING"
	case Paused:
		return "PAUSED"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// PlaneType is the orientation the service assigns to a plane.
type PlaneType int

const (
	HorizontalUpwardFacing PlaneType = iota
	HorizontalDownwardFacing
	Vertical
)

// Handle is the stable identity of a trackable across frames.
type Handle string

// Trackable is anything the service tracks.
type Trackable interface {
	TrackingState() TrackingState
}

// Plane is a detected planar surface.
type Plane interface {
	Trackable

	Handle() Handle

	// SubsumedBy returns the plane this one was merged into, or nil.
	SubsumedBy() Plane

	Type() PlaneType

	// CenterPose is the plane's local frame in world space. The plane
	// lies in the local XZ plane with +Y as its normal.
	CenterPose() pose.Pose

	// Polygon returns the boundary as flat local (x, z) pairs.
	Polygon() []float32

	ExtentX() float32
	ExtentZ() float32

	// CreateAnchor creates an anchor attached to this plane at a world pose.
	CreateAnchor(p pose.Pose) (Anchor, error)
}

// HitResult is one intersection of a tap ray with tracked geometry.
type HitResult interface {
	Trackable() Trackable
	HitPose() pose.Pose
	Distance() float32
	CreateAnchor() (Anchor, error)
}

// Anchor is a world-locked pose maintained by the service.
type Anchor interface {
	Pose() pose.Pose
	TrackingState() TrackingState

	// Detach stops the service tracking the anchor.
	Detach()
}

// Camera exposes the matrices for the frame's camera pose.
type Camera interface {
	ProjectionMatrix(near, far float32) mgl32.Mat4
	ViewMatrix() mgl32.Mat4
	TrackingState() TrackingState
}

// Frame is the snapshot returned by one Session.Update.
type Frame interface {
	// Timestamp is the capture time in unix nanos.
	Timestamp() int64

	// UpdatedPlanes lists planes changed since the previous frame.
	UpdatedPlanes() []Plane

	// HitTest casts a ray through the screen point and returns hits in the
	// service's ranking order.
	HitTest(x, y float32) []HitResult

	Camera() Camera
}

// Session is the running tracking service.
type Session interface {
	// Update advances the session and returns the latest frame. It may
	// block until a camera image is available.
	Update(ctx context.Context) (Frame, error)

	// SetCameraTextureName tells the service which texture receives the
	// camera image.
	SetCameraTextureName(id uint32)
}

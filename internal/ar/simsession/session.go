// Package simsession is a scripted, in-process tracking session. It stands
// in for the device tracking service in tests and in the desktop preview:
// planes, their motion and the camera pose are set by the caller and each
// Update publishes the changes since the previous one as a Frame.
package simsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/timeutil"
)

// Defaults for the simulated camera.
const (
	DefaultViewportWidth  = 960
	DefaultViewportHeight = 540
	DefaultFovDeg         = 60
)

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock frame timestamps are taken from.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithViewport sets the screen size taps are mapped from.
func WithViewport(width, height int) Option {
	return func(s *Session) {
		s.width, s.height = width, height
	}
}

// WithFieldOfView sets the vertical field of view in degrees.
func WithFieldOfView(deg float32) Option {
	return func(s *Session) { s.fovDeg = deg }
}

// Session implements session.Session. Scripting methods and Update may be
// called from different goroutines.
type Session struct {
	mu sync.RWMutex

	clock  timeutil.Clock
	width  int
	height int
	fovDeg float32

	planes  []*Plane
	dirty   []*Plane
	anchors []*Anchor
	camera  pose.Pose
	texture uint32

	scripted [][]session.HitResult
	frames   int
}

var _ session.Session = (*Session)(nil)

// New creates an empty session with the camera at the origin looking down -Z.
func New(opts ...Option) *Session {
	s := &Session{
		clock:  timeutil.RealClock{},
		width:  DefaultViewportWidth,
		height: DefaultViewportHeight,
		fovDeg: DefaultFovDeg,
		camera: pose.Identity(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddPlane starts tracking a plane with a flat local (x, z) polygon. It is
// reported in the next frame.
func (s *Session) AddPlane(typ session.PlaneType, center pose.Pose, polygon []float32) *Plane {
	p := &Plane{
		s:       s,
		handle:  session.Handle(uuid.NewString()),
		typ:     typ,
		center:  center,
		polygon: append([]float32(nil), polygon...),
		state:   session.Tracking,
	}
	s.mu.Lock()
	s.planes = append(s.planes, p)
	s.markLocked(p)
	s.mu.Unlock()
	return p
}

// AddRectPlane adds a plane whose boundary is an axis-aligned rectangle
// centred on its local origin.
func (s *Session) AddRectPlane(typ session.PlaneType, center pose.Pose, extentX, extentZ float32) *Plane {
	return s.AddPlane(typ, center, RectPolygon(extentX, extentZ))
}

// RectPolygon returns the flat (x, z) boundary of an extentX by extentZ
// rectangle centred on the origin.
func RectPolygon(extentX, extentZ float32) []float32 {
	hx, hz := extentX/2, extentZ/2
	return []float32{-hx, -hz, hx, -hz, hx, hz, -hx, hz}
}

// MovePlane changes a plane's center pose.
func (s *Session) MovePlane(p *Plane, center pose.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.center = center
	s.markLocked(p)
}

// SetPolygon replaces a plane's boundary.
func (s *Session) SetPolygon(p *Plane, polygon []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.polygon = append(p.polygon[:0], polygon...)
	s.markLocked(p)
}

// SetTrackingState changes a plane's tracking state.
func (s *Session) SetTrackingState(p *Plane, state session.TrackingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.state = state
	s.markLocked(p)
}

// Subsume merges p into parent. Both are reported as updated.
func (s *Session) Subsume(p, parent *Plane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.subsumedBy = parent
	s.markLocked(p)
	s.markLocked(parent)
}

// SetCameraPose moves the camera. The camera looks down its local -Z.
func (s *Session) SetCameraPose(p pose.Pose) {
	s.mu.Lock()
	s.camera = p
	s.mu.Unlock()
}

// ScriptHits makes the next frame's HitTest return hits in the given
// order instead of ray casting. Each call scripts one further frame.
func (s *Session) ScriptHits(hits ...session.HitResult) {
	s.mu.Lock()
	s.scripted = append(s.scripted, hits)
	s.mu.Unlock()
}

// SetCameraTextureName records the camera texture id.
func (s *Session) SetCameraTextureName(id uint32) {
	s.mu.Lock()
	s.texture = id
	s.mu.Unlock()
}

// CameraTextureName returns the id passed to SetCameraTextureName.
func (s *Session) CameraTextureName() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texture
}

// Planes returns every plane ever added, in insertion order.
func (s *Session) Planes() []*Plane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Plane(nil), s.planes...)
}

// LiveAnchors returns the number of anchors that have not been detached.
func (s *Session) LiveAnchors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.anchors {
		if !a.detached {
			n++
		}
	}
	return n
}

// Frames returns the number of completed Updates.
func (s *Session) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

func (s *Session) markLocked(p *Plane) {
	for _, d := range s.dirty {
		if d == p {
			return
		}
	}
	s.dirty = append(s.dirty, p)
}

// Update publishes the changes made since the previous Update.
func (s *Session) Update(ctx context.Context) (session.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sim session update: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &Frame{
		timestamp: s.clock.Now().UnixNano(),
		updated:   make([]session.Plane, 0, len(s.dirty)),
		camera: &Camera{
			pose:   s.camera,
			fovDeg: s.fovDeg,
			aspect: float32(s.width) / float32(s.height),
		},
		width:  float32(s.width),
		height: float32(s.height),
	}
	for _, p := range s.dirty {
		f.updated = append(f.updated, p)
	}
	s.dirty = s.dirty[:0]

	for _, p := range s.planes {
		if p.state == session.Tracking && p.subsumedBy == nil {
			f.targets = append(f.targets, planeSnapshot{plane: p, center: p.center})
		}
	}
	if len(s.scripted) > 0 {
		f.scripted = s.scripted[0]
		f.useScripted = true
		s.scripted = s.scripted[1:]
	}
	s.frames++
	return f, nil
}

// Plane is a simulated detected plane.
type Plane struct {
	s *Session

	handle     session.Handle
	typ        session.PlaneType
	center     pose.Pose
	polygon    []float32
	state      session.TrackingState
	subsumedBy *Plane
}

var _ session.Plane = (*Plane)(nil)

func (p *Plane) Handle() session.Handle { return p.handle }

func (p *Plane) Type() session.PlaneType { return p.typ }

func (p *Plane) TrackingState() session.TrackingState {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.state
}

func (p *Plane) SubsumedBy() session.Plane {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if p.subsumedBy == nil {
		return nil
	}
	return p.subsumedBy
}

func (p *Plane) CenterPose() pose.Pose {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.center
}

// Polygon returns a copy of the boundary.
func (p *Plane) Polygon() []float32 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return append([]float32(nil), p.polygon...)
}

func (p *Plane) bound() orb.Bound {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if len(p.polygon) < 2 {
		return orb.Bound{}
	}
	mp := make(orb.MultiPoint, 0, len(p.polygon)/2)
	for i := 0; i+1 < len(p.polygon); i += 2 {
		mp = append(mp, orb.Point{float64(p.polygon[i]), float64(p.polygon[i+1])})
	}
	return mp.Bound()
}

// ExtentX is the width of the boundary's bounding box along local X.
func (p *Plane) ExtentX() float32 {
	b := p.bound()
	return float32(b.Max[0] - b.Min[0])
}

// ExtentZ is the depth of the boundary's bounding box along local Z.
func (p *Plane) ExtentZ() float32 {
	b := p.bound()
	return float32(b.Max[1] - b.Min[1])
}

// CreateAnchor attaches an anchor at a world pose. The anchor keeps its
// offset from the plane center, so it follows later plane refinements.
func (p *Plane) CreateAnchor(at pose.Pose) (session.Anchor, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.state == session.Stopped {
		return nil, fmt.Errorf("plane %s: %w", p.handle, ErrNotTracking)
	}
	a := &Anchor{s: s, plane: p, local: p.center.Inverse().Compose(at)}
	s.anchors = append(s.anchors, a)
	return a, nil
}

// Anchor is a simulated plane-attached anchor.
type Anchor struct {
	s        *Session
	plane    *Plane
	local    pose.Pose
	detached bool
}

var _ session.Anchor = (*Anchor)(nil)

func (a *Anchor) Pose() pose.Pose {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	return a.plane.center.Compose(a.local)
}

func (a *Anchor) TrackingState() session.TrackingState {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if a.detached {
		return session.Stopped
	}
	return a.plane.state
}

func (a *Anchor) Detach() {
	a.s.mu.Lock()
	a.detached = true
	a.s.mu.Unlock()
}

// Camera is the camera of one frame.
type Camera struct {
	pose   pose.Pose
	fovDeg float32
	aspect float32
}

var _ session.Camera = (*Camera)(nil)

// Pose is the camera's world pose.
func (c *Camera) Pose() pose.Pose { return c.pose }

func (c *Camera) ProjectionMatrix(near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.fovDeg), c.aspect, near, far)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.pose.Inverse().Matrix()
}

func (c *Camera) TrackingState() session.TrackingState { return session.Tracking }

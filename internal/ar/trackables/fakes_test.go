package trackables

import (
	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

type fakePlane struct {
	handle   session.Handle
	state    session.TrackingState
	subsumed session.Plane
	typ      session.PlaneType
	center   pose.Pose
	polygon  []float32
	extentX  float32
	extentZ  float32
}

func newPlane(h string) *fakePlane {
	return &fakePlane{
		handle:  session.Handle(h),
		state:   session.Tracking,
		center:  pose.Identity(),
		polygon: []float32{-1, -1, 1, -1, 1, 1, -1, 1},
		extentX: 2,
		extentZ: 2,
	}
}

func (p *fakePlane) TrackingState() session.TrackingState { return p.state }
func (p *fakePlane) Handle() session.Handle               { return p.handle }
func (p *fakePlane) SubsumedBy() session.Plane            { return p.subsumed }
func (p *fakePlane) Type() session.PlaneType              { return p.typ }
func (p *fakePlane) CenterPose() pose.Pose                { return p.center }
func (p *fakePlane) Polygon() []float32                   { return p.polygon }
func (p *fakePlane) ExtentX() float32                     { return p.extentX }
func (p *fakePlane) ExtentZ() float32                     { return p.extentZ }
func (p *fakePlane) CreateAnchor(pose.Pose) (session.Anchor, error) {
	return nil, nil
}

type fakeFrame struct {
	planes []session.Plane
}

func frameOf(planes ...*fakePlane) *fakeFrame {
	f := &fakeFrame{}
	for _, p := range planes {
		f.planes = append(f.planes, p)
	}
	return f
}

func (f *fakeFrame) Timestamp() int64                         { return 0 }
func (f *fakeFrame) UpdatedPlanes() []session.Plane           { return f.planes }
func (f *fakeFrame) HitTest(x, y float32) []session.HitResult { return nil }
func (f *fakeFrame) Camera() session.Camera                   { return nil }

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) TrackableAdded(index int, h session.Handle, gen uint64) {
	o.events = append(o.events, "added:"+string(h))
}

func (o *recordingObserver) TrackableRemoved(h session.Handle, gen uint64) {
	o.events = append(o.events, "removed:"+string(h))
}

func (o *recordingObserver) TrackableSelected(index int, h session.Handle, gen uint64) {
	o.events = append(o.events, "selected:"+string(h))
}

package simsession

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

// ErrNotTracking is returned when anchoring onto a plane that stopped tracking.
var ErrNotTracking = errors.New("trackable is not tracking")

// parallelEpsilon rejects rays nearly parallel to a plane.
const parallelEpsilon = 1e-6

type planeSnapshot struct {
	plane  *Plane
	center pose.Pose
}

// Frame is one published snapshot.
type Frame struct {
	timestamp int64
	updated   []session.Plane
	camera    *Camera
	width     float32
	height    float32

	targets     []planeSnapshot
	scripted    []session.HitResult
	useScripted bool
}

var _ session.Frame = (*Frame)(nil)

func (f *Frame) Timestamp() int64 { return f.timestamp }

func (f *Frame) UpdatedPlanes() []session.Plane { return f.updated }

func (f *Frame) Camera() session.Camera { return f.camera }

// HitTest casts a ray from the camera through screen point (x, y) against
// the infinite extension of every tracking plane, nearest first. Hits
// outside a plane's polygon are reported too; callers filter them.
func (f *Frame) HitTest(x, y float32) []session.HitResult {
	if f.useScripted {
		return f.scripted
	}
	origin, dir := f.ray(x, y)

	var hits []session.HitResult
	for _, t := range f.targets {
		normal := vec(t.center.TransformPoint(mgl32.Vec3{0, 1, 0}).Sub(t.center.Translation))
		denom := r3.Dot(normal, dir)
		if math.Abs(denom) < parallelEpsilon {
			continue
		}
		dist := r3.Dot(normal, r3.Sub(vec(t.center.Translation), origin)) / denom
		if dist <= 0 {
			continue
		}
		p := r3.Add(origin, r3.Scale(dist, dir))
		hits = append(hits, &Hit{
			trackable: t.plane,
			pose:      pose.New(mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}, t.center.Rotation),
			distance:  float32(dist),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance() < hits[j].Distance()
	})
	return hits
}

// ray returns the world-space origin and unit direction through a pixel.
func (f *Frame) ray(x, y float32) (r3.Vec, r3.Vec) {
	c := f.camera
	ndcX := 2*float64(x)/float64(f.width) - 1
	ndcY := 1 - 2*float64(y)/float64(f.height)
	tanHalf := math.Tan(float64(mgl32.DegToRad(c.fovDeg)) / 2)

	local := mgl32.Vec3{
		float32(ndcX * tanHalf * float64(c.aspect)),
		float32(ndcY * tanHalf),
		-1,
	}
	dir := vec(c.pose.TransformPoint(local).Sub(c.pose.Translation))
	return vec(c.pose.Translation), r3.Unit(dir)
}

func vec(v mgl32.Vec3) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// Hit is a single hit-test result.
type Hit struct {
	trackable session.Trackable
	pose      pose.Pose
	distance  float32
}

var _ session.HitResult = (*Hit)(nil)

// NewHit builds a hit for ScriptHits.
func NewHit(t session.Trackable, at pose.Pose, distance float32) *Hit {
	return &Hit{trackable: t, pose: at, distance: distance}
}

func (h *Hit) Trackable() session.Trackable { return h.trackable }

func (h *Hit) HitPose() pose.Pose { return h.pose }

func (h *Hit) Distance() float32 { return h.distance }

// CreateAnchor anchors onto the hit plane at the hit pose.
func (h *Hit) CreateAnchor() (session.Anchor, error) {
	p, ok := h.trackable.(session.Plane)
	if !ok {
		return nil, errors.New("hit trackable does not support anchors")
	}
	return p.CreateAnchor(h.pose)
}

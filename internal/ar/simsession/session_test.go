package simsession

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/timeutil"
)

func floorAt(y float32) pose.Pose {
	return pose.MakeTranslation(0, y, 0)
}

func TestUpdate_ReportsOnlyChangedPlanes(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 2, 2)
	b := s.AddRectPlane(session.Vertical, pose.MakeTranslation(0, 0, -3), 1, 1)

	f, err := s.Update(ctx)
	require.NoError(t, err)
	require.Len(t, f.UpdatedPlanes(), 2)
	assert.Equal(t, a.Handle(), f.UpdatedPlanes()[0].Handle())
	assert.Equal(t, b.Handle(), f.UpdatedPlanes()[1].Handle())

	f, err = s.Update(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.UpdatedPlanes())

	s.MovePlane(b, pose.MakeTranslation(0, 0, -4))
	s.MovePlane(b, pose.MakeTranslation(0, 0, -5))
	f, err = s.Update(ctx)
	require.NoError(t, err)
	require.Len(t, f.UpdatedPlanes(), 1, "a plane changed twice is reported once")
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, f.UpdatedPlanes()[0].CenterPose().Translation)
	assert.Equal(t, 3, s.Frames())
}

func TestUpdate_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Update(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_TimestampFromClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s := New(WithClock(clock))

	f, err := s.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start.UnixNano(), f.Timestamp())

	clock.Advance(16 * time.Millisecond)
	f, err = s.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start.Add(16*time.Millisecond).UnixNano(), f.Timestamp())
}

func TestPlane_Extents(t *testing.T) {
	s := New()
	p := s.AddPlane(session.HorizontalUpwardFacing, floorAt(0), []float32{-1, -0.5, 2, -0.5, 2, 1, -1, 1})
	assert.InDelta(t, 3, p.ExtentX(), 1e-6)
	assert.InDelta(t, 1.5, p.ExtentZ(), 1e-6)

	poly := p.Polygon()
	poly[0] = 99
	assert.Equal(t, float32(-1), p.Polygon()[0], "Polygon returns a copy")
}

func TestSubsume(t *testing.T) {
	s := New()
	child := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 1, 1)
	parent := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 3, 3)
	assert.Nil(t, child.SubsumedBy())

	s.Subsume(child, parent)
	require.NotNil(t, child.SubsumedBy())
	assert.Equal(t, parent.Handle(), child.SubsumedBy().Handle())
}

func TestHitTest_RayCastNearestFirst(t *testing.T) {
	s := New(WithViewport(100, 100), WithFieldOfView(90))
	near := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 10, 10)
	far := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-2), 10, 10)

	f, err := s.Update(context.Background())
	require.NoError(t, err)

	// Bottom-centre pixel with a 90 degree fov looks down at 45 degrees.
	hits := f.HitTest(50, 100)
	require.Len(t, hits, 2)
	assert.Equal(t, near.Handle(), hits[0].Trackable().(session.Plane).Handle())
	assert.Equal(t, far.Handle(), hits[1].Trackable().(session.Plane).Handle())

	p := hits[0].HitPose().Translation
	assert.InDelta(t, 0, p.X(), 1e-5)
	assert.InDelta(t, -1, p.Y(), 1e-5)
	assert.InDelta(t, -1, p.Z(), 1e-5)
	assert.Less(t, hits[0].Distance(), hits[1].Distance())
}

func TestHitTest_SkipsParallelBehindAndNonTracking(t *testing.T) {
	s := New(WithViewport(100, 100), WithFieldOfView(90))
	s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 10, 10)
	ceiling := s.AddRectPlane(session.HorizontalDownwardFacing, floorAt(2), 10, 10)
	stopped := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-3), 10, 10)
	s.SetTrackingState(stopped, session.Stopped)

	f, err := s.Update(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.HitTest(50, 50), "centre ray is parallel to horizontal planes")

	hits := f.HitTest(50, 100)
	require.Len(t, hits, 1)
	assert.NotEqual(t, ceiling.Handle(), hits[0].Trackable().(session.Plane).Handle())
}

func TestHitTest_Scripted(t *testing.T) {
	s := New()
	p := s.AddRectPlane(session.Vertical, floorAt(0), 1, 1)
	hit := NewHit(p, pose.MakeTranslation(1, 2, 3), 4)
	s.ScriptHits(hit)

	f, err := s.Update(context.Background())
	require.NoError(t, err)
	hits := f.HitTest(0, 0)
	require.Len(t, hits, 1)
	assert.Same(t, hit, hits[0])

	f, err = s.Update(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.HitTest(0, 0), "script applies to one frame only")
}

func TestAnchor_FollowsPlaneAndDetaches(t *testing.T) {
	s := New()
	p := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 2, 2)

	a, err := p.CreateAnchor(pose.MakeTranslation(0.5, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, s.LiveAnchors())
	assert.True(t, a.Pose().ApproxEqual(pose.MakeTranslation(0.5, -1, 0), 1e-6))

	s.MovePlane(p, floorAt(-0.5))
	assert.True(t, a.Pose().ApproxEqual(pose.MakeTranslation(0.5, -0.5, 0), 1e-6))

	s.SetTrackingState(p, session.Paused)
	assert.Equal(t, session.Paused, a.TrackingState())

	a.Detach()
	assert.Equal(t, session.Stopped, a.TrackingState())
	assert.Equal(t, 0, s.LiveAnchors())
}

func TestCreateAnchor_StoppedPlane(t *testing.T) {
	s := New()
	p := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 2, 2)
	s.SetTrackingState(p, session.Stopped)
	_, err := p.CreateAnchor(pose.Identity())
	require.ErrorIs(t, err, ErrNotTracking)
}

func TestHit_CreateAnchor(t *testing.T) {
	s := New()
	p := s.AddRectPlane(session.HorizontalUpwardFacing, floorAt(-1), 2, 2)
	a, err := NewHit(p, pose.MakeTranslation(0, -1, 0), 1).CreateAnchor()
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, a.Pose().Translation)
}

func TestCamera_Matrices(t *testing.T) {
	s := New(WithViewport(200, 100), WithFieldOfView(60))
	s.SetCameraPose(pose.MakeTranslation(0, 1.5, 0))
	s.SetCameraTextureName(7)
	assert.Equal(t, uint32(7), s.CameraTextureName())

	f, err := s.Update(context.Background())
	require.NoError(t, err)
	cam := f.Camera()

	want := mgl32.Perspective(mgl32.DegToRad(60), 2, 0.1, 100)
	assert.Equal(t, want, cam.ProjectionMatrix(0.1, 100))

	eye := cam.ViewMatrix().Mul4x1(mgl32.Vec4{0, 1.5, 0, 1})
	assert.InDelta(t, 0, eye.Y(), 1e-6, "view maps the camera position to the origin")
}

package simsession

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

// Scene is the room the desktop preview starts in.
type Scene struct {
	Floor   *Plane
	Table   *Plane
	Wall    *Plane
	Ceiling *Plane
}

// DemoScene adds a floor, a table top, a wall and a ceiling to s. The
// camera is expected at standing height, 1.5m above the floor.
func DemoScene(s *Session) Scene {
	return Scene{
		Floor: s.AddRectPlane(session.HorizontalUpwardFacing,
			pose.MakeTranslation(0, -1.5, -2), 4, 4),
		Table: s.AddPlane(session.HorizontalUpwardFacing,
			pose.MakeTranslation(0.8, -0.75, -2.5),
			[]float32{-0.6, -0.4, 0.6, -0.4, 0.7, 0, 0.6, 0.4, -0.6, 0.4}),
		Wall: s.AddRectPlane(session.Vertical,
			pose.New(mgl32.Vec3{0, 0, -4}, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})), 4, 3),
		Ceiling: s.AddRectPlane(session.HorizontalDownwardFacing,
			pose.New(mgl32.Vec3{0, 1, -2}, mgl32.QuatRotate(mgl32.DegToRad(180), mgl32.Vec3{1, 0, 0})), 4, 4),
	}
}

// Rig is a walking camera: a position plus a heading about world Y.
type Rig struct {
	Position mgl32.Vec3
	Yaw      float32 // radians, 0 looks down -Z
}

// Pose is the camera pose for the rig.
func (r Rig) Pose() pose.Pose {
	return pose.New(r.Position, mgl32.QuatRotate(r.Yaw, mgl32.Vec3{0, 1, 0}))
}

// Forward is the horizontal unit vector the rig faces.
func (r Rig) Forward() mgl32.Vec3 {
	return mgl32.QuatRotate(r.Yaw, mgl32.Vec3{0, 1, 0}).Rotate(mgl32.Vec3{0, 0, -1})
}

// Turn rotates the heading; positive turns left.
func (r *Rig) Turn(rad float32) {
	r.Yaw += rad
}

// Walk moves along the heading; negative walks backwards.
func (r *Rig) Walk(dist float32) {
	r.Position = r.Position.Add(r.Forward().Mul(dist))
}

// Package pose converts between the tracking service's rigid poses and the
// column-major 4x4 matrices consumed by the renderer's transform stack.
package pose

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MatrixValidationTolerance is the tolerance for checking rotation matrix validity.
const MatrixValidationTolerance = 0.01

// ErrShortMatrix is returned when a matrix buffer holds fewer than 16 floats
// past the requested offset.
var ErrShortMatrix = errors.New("matrix buffer shorter than 16 elements")

// Pose is a rigid transform: a rotation followed by a translation, mapping
// a local frame into world space. The zero Pose is the identity.
type Pose struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// New returns a pose with the given translation and rotation. The rotation
// is normalised.
func New(t mgl32.Vec3, r mgl32.Quat) Pose {
	return Pose{Translation: t, Rotation: r.Normalize()}
}

// MakeTranslation returns a translation-only pose.
func MakeTranslation(x, y, z float32) Pose {
	return Pose{Translation: mgl32.Vec3{x, y, z}, Rotation: mgl32.QuatIdent()}
}

// FromMatrix extracts a pose from a rigid column-major transform. Scale
// and shear are not representable and are discarded.
func FromMatrix(m mgl32.Mat4) Pose {
	return Pose{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl32.Mat4ToQuat(m).Normalize(),
	}
}

func (p Pose) rotation() mgl32.Quat {
	if p.Rotation == (mgl32.Quat{}) {
		return mgl32.QuatIdent()
	}
	return p.Rotation
}

// Matrix returns the pose as a column-major 4x4 transform.
func (p Pose) Matrix() mgl32.Mat4 {
	t := p.Translation
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(p.rotation().Mat4())
}

// ToMatrix writes the column-major transform into dst starting at offset.
func (p Pose) ToMatrix(dst []float32, offset int) error {
	if offset < 0 || len(dst)-offset < 16 {
		return ErrShortMatrix
	}
	m := p.Matrix()
	copy(dst[offset:offset+16], m[:])
	return nil
}

// TransformPoint maps a point from the pose's local frame into world space.
func (p Pose) TransformPoint(v mgl32.Vec3) mgl32.Vec3 {
	return p.rotation().Rotate(v).Add(p.Translation)
}

// Compose returns the pose equivalent to applying q in p's local frame,
// i.e. Matrix(p.Compose(q)) == Matrix(p) * Matrix(q).
func (p Pose) Compose(q Pose) Pose {
	return Pose{
		Translation: p.TransformPoint(q.Translation),
		Rotation:    p.rotation().Mul(q.rotation()).Normalize(),
	}
}

// Inverse returns the pose mapping world space back into p's local frame.
func (p Pose) Inverse() Pose {
	inv := p.rotation().Inverse()
	return Pose{
		Translation: inv.Rotate(p.Translation.Mul(-1)),
		Rotation:    inv,
	}
}

// ApproxEqual compares translations and rotations component-wise with an
// absolute tolerance, treating q and -q as the same rotation.
func (p Pose) ApproxEqual(q Pose, eps float32) bool {
	if !within(p.Translation[:], q.Translation[:], eps) {
		return false
	}
	a, b := quatComponents(p.rotation()), quatComponents(q.rotation())
	if within(a[:], b[:], eps) {
		return true
	}
	for i := range b {
		b[i] = -b[i]
	}
	return within(a[:], b[:], eps)
}

func quatComponents(q mgl32.Quat) [4]float32 {
	return [4]float32{q.W, q.V[0], q.V[1], q.V[2]}
}

// within reports whether a and b differ by at most eps in every component.
// mgl32's ApproxEqualThreshold is relative and degenerates to eps² when
// one side is exactly zero, which rejects ordinary float32 residue.
func within(a, b []float32, eps float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > float64(eps) {
			return false
		}
	}
	return true
}

// FromColumnMajor reads a column-major matrix from the first 16 floats of a.
func FromColumnMajor(a []float32) (mgl32.Mat4, error) {
	var m mgl32.Mat4
	if len(a) < 16 {
		return m, ErrShortMatrix
	}
	copy(m[:], a[:16])
	return m, nil
}

// RowMajor returns the matrix elements in row order (n00, n01, n02, n03,
// n10, ...), the argument order of applyMatrix-style renderer calls.
func RowMajor(m mgl32.Mat4) [16]float32 {
	return [16]float32(m.Transpose())
}

// CopyTo copies m into dst and returns dst, allocating a new matrix when
// dst is nil.
func CopyTo(dst *mgl32.Mat4, m mgl32.Mat4) *mgl32.Mat4 {
	if dst == nil {
		dst = new(mgl32.Mat4)
	}
	*dst = m
	return dst
}

// IsRigid checks if a 4x4 column-major matrix is a valid rigid transform.
// A valid rigid transform has:
// 1. Rotation submatrix with det ≈ 1 (proper rotation, not reflection)
// 2. Last row is [0 0 0 1]
func IsRigid(m mgl32.Mat4) bool {
	det := float64(m.Mat3().Det())
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}
	if m[3] != 0 || m[7] != 0 || m[11] != 0 || math.Abs(float64(m[15])-1.0) > 0.001 {
		return false
	}
	return true
}

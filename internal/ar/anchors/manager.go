// Package anchors keeps the append-only list of spatial anchors and the
// reserved selection anchor slot.
//
// Anchor indices are never reused or compacted: DeleteAnchor is a no-op so
// that an index handed to a sketch stays valid for the whole session.
package anchors

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar"
	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/monitoring"
)

const kind = "anchor"

var (
	// ErrAnchorUnbound is returned for the selection anchor slot before
	// the first selection has bound an anchor to it.
	ErrAnchorUnbound = errors.New("anchor slot not bound yet")
	// ErrUnknownTrackable is returned when anchoring to a handle that is
	// not in the registry.
	ErrUnknownTrackable = errors.New("unknown trackable")
)

// PlaneSource is the part of the trackable registry anchors are created on.
type PlaneSource interface {
	Plane(i int) (session.Plane, error)
	IndexOf(h session.Handle) int
}

// Observer receives anchor lifecycle events (optional).
type Observer interface {
	AnchorCreated(index int, trackable session.Handle, at pose.Pose)
	SelectionAnchorRebound(index int, at pose.Pose)
}

// Manager owns the anchors created by a sketch. It runs on the render
// goroutine and is not safe for concurrent use.
type Manager struct {
	anchors   []session.Anchor // nil only for an unbound selection slot
	selection int              // selection anchor slot, -1 when none
	planes    PlaneSource

	Observer Observer
}

// NewManager creates a manager that anchors onto planes from src.
func NewManager(src PlaneSource) *Manager {
	return &Manager{planes: src, selection: -1}
}

// CreateSelectionAnchor reserves the selection anchor slot and returns its
// index. The slot is bound on the next successful selection. Calling it
// again only warns and returns the existing index.
func (m *Manager) CreateSelectionAnchor() int {
	if m.selection != -1 {
		monitoring.Warnf("Selection anchor already created")
		return m.selection
	}
	m.selection = len(m.anchors)
	m.anchors = append(m.anchors, nil)
	return m.selection
}

// SelectionIndex returns the selection anchor slot, or -1.
func (m *Manager) SelectionIndex() int {
	return m.selection
}

// RebindSelection detaches the anchor in the selection slot and replaces it
// with a new anchor at the hit pose. There is no confirmation that the
// service released the previous anchor. If creation fails the slot is left
// unbound and the error returned.
func (m *Manager) RebindSelection(hit session.HitResult) error {
	if m.selection < 0 {
		return nil
	}
	if prev := m.anchors[m.selection]; prev != nil {
		prev.Detach()
	}
	a, err := hit.CreateAnchor()
	if err != nil {
		m.anchors[m.selection] = nil
		return fmt.Errorf("create selection anchor: %w", err)
	}
	m.anchors[m.selection] = a
	if m.Observer != nil {
		m.Observer.SelectionAnchorRebound(m.selection, a.Pose())
	}
	return nil
}

// CreateAnchor pins a new anchor to trackable i at the plane-local point
// (x, y, z) and returns its index. The anchor takes the plane's
// orientation, so the local origin yields the plane's center pose.
func (m *Manager) CreateAnchor(trackable int, x, y, z float32) (int, error) {
	plane, err := m.planes.Plane(trackable)
	if err != nil {
		return -1, err
	}
	at := plane.CenterPose().Compose(pose.MakeTranslation(x, y, z))
	a, err := plane.CreateAnchor(at)
	if err != nil {
		return -1, fmt.Errorf("create anchor on %s: %w", plane.Handle(), err)
	}
	m.anchors = append(m.anchors, a)
	id := len(m.anchors) - 1
	if m.Observer != nil {
		m.Observer.AnchorCreated(id, plane.Handle(), a.Pose())
	}
	return id, nil
}

// CreateAnchorOn is CreateAnchor keyed by trackable handle instead of index.
func (m *Manager) CreateAnchorOn(h session.Handle, x, y, z float32) (int, error) {
	i := m.planes.IndexOf(h)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownTrackable, h)
	}
	return m.CreateAnchor(i, x, y, z)
}

// DeleteAnchor is accepted and ignored; anchors are never removed.
func (m *Manager) DeleteAnchor(id int) {}

// Count returns the number of anchor slots, including the selection slot.
func (m *Manager) Count() int {
	return len(m.anchors)
}

// ID returns the identifier of anchor i, which is its index.
func (m *Manager) ID(i int) int {
	return i
}

func (m *Manager) at(id int) (session.Anchor, error) {
	if err := ar.CheckIndex(kind, id, len(m.anchors)); err != nil {
		return nil, err
	}
	return m.anchors[id], nil
}

// Status returns the anchor's status derived from its tracking state. An
// unbound selection slot reports StatusNone.
func (m *Manager) Status(id int) (ar.Status, error) {
	a, err := m.at(id)
	if err != nil {
		return ar.StatusNone, err
	}
	if a == nil {
		return ar.StatusNone, nil
	}
	return ar.StatusFromTrackingState(a.TrackingState()), nil
}

// Pose returns the anchor's current world pose.
func (m *Manager) Pose(id int) (pose.Pose, error) {
	a, err := m.at(id)
	if err != nil {
		return pose.Pose{}, err
	}
	if a == nil {
		return pose.Pose{}, fmt.Errorf("anchor %d: %w", id, ErrAnchorUnbound)
	}
	return a.Pose(), nil
}

// Matrix copies the anchor's world transform into dst, allocating a new
// matrix when dst is nil.
func (m *Manager) Matrix(id int, dst *mgl32.Mat4) (*mgl32.Mat4, error) {
	p, err := m.Pose(id)
	if err != nil {
		return nil, err
	}
	return pose.CopyTo(dst, p.Matrix()), nil
}

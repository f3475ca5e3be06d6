package trackables

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/banshee-data/arlayer/internal/ar"
	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/monitoring"
)

const kind = "trackable"

// Observer receives registry lifecycle events. All calls happen
// synchronously inside Update or Select on the render goroutine.
type Observer interface {
	TrackableAdded(index int, handle session.Handle, generation uint64)
	TrackableRemoved(handle session.Handle, generation uint64)
	TrackableSelected(index int, handle session.Handle, generation uint64)
}

// entry is one registered plane. The world transform and the per-frame
// stamps live inline so there is nothing to keep in sync besides the
// ordered slice and the handle map, both of which are only touched by
// add and removeAt.
type entry struct {
	handle    session.Handle
	plane     session.Plane
	transform mgl32.Mat4

	// Generation in which the entry was created / last reported. The
	// entry is "created" or "updated" while these equal Registry.gen.
	created uint64
	updated uint64
}

// Registry is the authoritative, stably indexed set of tracked planes.
// It is driven from the render goroutine and is not safe for concurrent use.
type Registry struct {
	entries  []*entry
	byHandle map[session.Handle]*entry
	selected *entry

	// gen identifies the current frame. EndFrame advances it, which
	// clears every created/updated stamp at once.
	gen uint64

	// Observer is notified of additions, removals and selections (optional).
	Observer Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byHandle: make(map[session.Handle]*entry),
		gen:      1,
	}
}

// Update folds one frame's plane updates into the registry. It must be
// called exactly once per rendered frame, after the session has advanced.
func (r *Registry) Update(frame session.Frame) {
	for _, plane := range frame.UpdatedPlanes() {
		// A subsumed plane is being merged into another; never (re)track it.
		if plane.SubsumedBy() != nil {
			continue
		}
		e, ok := r.byHandle[plane.Handle()]
		if !ok {
			e = r.add(plane)
		}
		e.plane = plane
		e.transform = plane.CenterPose().Matrix()
		e.updated = r.gen
		if !pose.IsRigid(e.transform) {
			monitoring.Logf("[ar] trackable %s reported a non-rigid center pose", e.handle)
		}
	}

	// Reverse order so removal does not shift entries not yet visited.
	for i := len(r.entries) - 1; i >= 0; i-- {
		plane := r.entries[i].plane
		if plane.TrackingState() == session.Stopped || plane.SubsumedBy() != nil {
			r.removeAt(i)
		}
	}
}

func (r *Registry) add(plane session.Plane) *entry {
	e := &entry{
		handle:  plane.Handle(),
		plane:   plane,
		created: r.gen,
	}
	r.entries = append(r.entries, e)
	r.byHandle[e.handle] = e
	if r.Observer != nil {
		r.Observer.TrackableAdded(len(r.entries)-1, e.handle, r.gen)
	}
	return e
}

func (r *Registry) removeAt(i int) {
	e := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.byHandle, e.handle)
	if r.selected == e {
		r.selected = nil
	}
	if r.Observer != nil {
		r.Observer.TrackableRemoved(e.handle, r.gen)
	}
}

// EndFrame clears the per-frame created/updated status of every entry.
func (r *Registry) EndFrame() {
	r.gen++
}

// Generation returns the current frame generation.
func (r *Registry) Generation() uint64 {
	return r.gen
}

// Count returns the number of registered trackables.
func (r *Registry) Count() int {
	return len(r.entries)
}

func (r *Registry) at(i int) (*entry, error) {
	if err := ar.CheckIndex(kind, i, len(r.entries)); err != nil {
		return nil, err
	}
	return r.entries[i], nil
}

// IndexOf returns the current index of the trackable with the given
// handle, or -1 when it is not registered.
func (r *Registry) IndexOf(h session.Handle) int {
	e, ok := r.byHandle[h]
	if !ok {
		return -1
	}
	return r.indexOfEntry(e)
}

func (r *Registry) indexOfEntry(e *entry) int {
	for i, cand := range r.entries {
		if cand == e {
			return i
		}
	}
	return -1
}

// Contains reports whether a plane with the given handle is registered.
func (r *Registry) Contains(h session.Handle) bool {
	_, ok := r.byHandle[h]
	return ok
}

// Handle returns the external handle of trackable i.
func (r *Registry) Handle(i int) (session.Handle, error) {
	e, err := r.at(i)
	if err != nil {
		return "", err
	}
	return e.handle, nil
}

// Plane returns the most recently reported plane for trackable i.
func (r *Registry) Plane(i int) (session.Plane, error) {
	e, err := r.at(i)
	if err != nil {
		return nil, err
	}
	return e.plane, nil
}

// Type returns the plane classification of trackable i.
func (r *Registry) Type(i int) (ar.PlaneType, error) {
	e, err := r.at(i)
	if err != nil {
		return ar.PlaneUnknown, err
	}
	return ar.PlaneTypeFromSession(e.plane.Type()), nil
}

// Status returns the status of trackable i for this frame, in priority
// order created, updated, then the session tracking state.
func (r *Registry) Status(i int) (ar.Status, error) {
	e, err := r.at(i)
	if err != nil {
		return ar.StatusNone, err
	}
	switch {
	case e.created == r.gen:
		return ar.StatusCreated, nil
	case e.updated == r.gen:
		return ar.StatusUpdated, nil
	default:
		return ar.StatusFromTrackingState(e.plane.TrackingState()), nil
	}
}

// Selected reports whether trackable i is the selected plane.
func (r *Registry) Selected(i int) (bool, error) {
	e, err := r.at(i)
	if err != nil {
		return false, err
	}
	return e == r.selected, nil
}

// SelectedIndex returns the index of the selected plane, or -1.
func (r *Registry) SelectedIndex() int {
	if r.selected == nil {
		return -1
	}
	return r.indexOfEntry(r.selected)
}

// Select marks the plane with the given handle as selected. It returns
// false and leaves the selection unchanged when the handle is unknown.
func (r *Registry) Select(h session.Handle) bool {
	e, ok := r.byHandle[h]
	if !ok {
		return false
	}
	r.selected = e
	if r.Observer != nil {
		r.Observer.TrackableSelected(r.indexOfEntry(e), h, r.gen)
	}
	return true
}

// ExtentX returns the plane's extent along its local X axis.
func (r *Registry) ExtentX(i int) (float32, error) {
	e, err := r.at(i)
	if err != nil {
		return 0, err
	}
	return e.plane.ExtentX(), nil
}

// ExtentZ returns the plane's extent along its local Z axis.
func (r *Registry) ExtentZ(i int) (float32, error) {
	e, err := r.at(i)
	if err != nil {
		return 0, err
	}
	return e.plane.ExtentZ(), nil
}

// Polygon copies the boundary of trackable i (flat local x, z pairs) into
// buf and returns buf[:n]. A new slice is allocated only when buf is
// shorter than the polygon.
func (r *Registry) Polygon(i int, buf []float32) ([]float32, error) {
	e, err := r.at(i)
	if err != nil {
		return nil, err
	}
	poly := e.plane.Polygon()
	if len(buf) < len(poly) {
		buf = make([]float32, len(poly))
	}
	n := copy(buf, poly)
	return buf[:n], nil
}

// Matrix copies the world transform of trackable i into dst, allocating a
// new matrix when dst is nil.
func (r *Registry) Matrix(i int, dst *mgl32.Mat4) (*mgl32.Mat4, error) {
	e, err := r.at(i)
	if err != nil {
		return nil, err
	}
	return pose.CopyTo(dst, e.transform), nil
}

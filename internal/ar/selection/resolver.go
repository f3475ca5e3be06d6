package selection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

// PlaneRegistry is the part of the trackable registry the resolver needs.
type PlaneRegistry interface {
	Contains(h session.Handle) bool
	Select(h session.Handle) bool
	IndexOf(h session.Handle) int
}

// SelectionAnchor is the part of the anchor manager the resolver needs.
type SelectionAnchor interface {
	// SelectionIndex returns the selection anchor slot, or -1.
	SelectionIndex() int
	// RebindSelection detaches the current selection anchor and replaces
	// it with one created from the hit.
	RebindSelection(hit session.HitResult) error
}

// Result describes what one Resolve call did.
type Result struct {
	Tapped   bool // a tap was dequeued
	Tap      Tap
	Selected bool // a qualifying hit was found
	Handle   session.Handle
	Index    int // registry index of the selected plane
	Rank     int // position of the qualifying hit in the service ranking
}

// Resolver picks the plane under a tap.
type Resolver struct {
	planes  PlaneRegistry
	anchors SelectionAnchor
}

// NewResolver creates a resolver. anchors may be nil when no selection
// anchor is used.
func NewResolver(planes PlaneRegistry, anchors SelectionAnchor) *Resolver {
	return &Resolver{planes: planes, anchors: anchors}
}

// Resolve consumes at most one tap from the queue and resolves it.
// Without a pending tap it does nothing.
func (r *Resolver) Resolve(frame session.Frame, taps *TapQueue) (Result, error) {
	tap, ok := taps.Poll()
	if !ok {
		return Result{}, nil
	}
	return r.ResolveTap(frame, tap)
}

// ResolveTap walks the frame's hit test for the tap in service order and
// selects the first hit on a registered plane whose hit point lies inside
// the plane polygon. The ranking is not re-sorted by distance. Without a
// qualifying hit the previous selection is kept.
func (r *Resolver) ResolveTap(frame session.Frame, tap Tap) (Result, error) {
	res := Result{Tapped: true, Tap: tap, Index: -1, Rank: -1}

	for rank, hit := range frame.HitTest(tap.X, tap.Y) {
		plane, ok := hit.Trackable().(session.Plane)
		if !ok {
			continue
		}
		h := plane.Handle()
		if !r.planes.Contains(h) || !InPolygon(plane, hit.HitPose()) {
			continue
		}

		r.planes.Select(h)
		res.Selected = true
		res.Handle = h
		res.Index = r.planes.IndexOf(h)
		res.Rank = rank

		if r.anchors != nil && r.anchors.SelectionIndex() >= 0 {
			if err := r.anchors.RebindSelection(hit); err != nil {
				return res, fmt.Errorf("rebind selection anchor to %s: %w", h, err)
			}
		}
		return res, nil
	}
	return res, nil
}

// InPolygon reports whether the hit pose lies inside the plane's boundary.
// The hit point is taken into the plane's local frame and tested against
// the local x/z polygon; points on the boundary count as inside.
func InPolygon(plane session.Plane, hit pose.Pose) bool {
	ring := polygonRing(plane.Polygon())
	if ring == nil {
		return false
	}
	local := plane.CenterPose().Inverse().TransformPoint(hit.Translation)
	return planar.RingContains(ring, orb.Point{float64(local.X()), float64(local.Z())})
}

// polygonRing converts flat x, z pairs into a closed ring. Fewer than
// three vertices yield nil.
func polygonRing(flat []float32) orb.Ring {
	if len(flat) < 6 {
		return nil
	}
	ring := make(orb.Ring, 0, len(flat)/2+1)
	for i := 0; i+1 < len(flat); i += 2 {
		ring = append(ring, orb.Point{float64(flat[i]), float64(flat[i+1])})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

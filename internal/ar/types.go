package ar

import (
	"errors"
	"fmt"

	"github.com/banshee-data/arlayer/internal/ar/session"
)

// Status is the per-frame status reported for a trackable or anchor.
type Status int

const (
	StatusNone     Status = iota // matches no other status
	StatusCreated                // first frame the trackable was seen
	StatusUpdated                // reported by the session this frame
	StatusTracking               // tracked, not updated this frame
	StatusPaused                 // tracking temporarily lost
	StatusStopped                // will never be tracked again
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusUpdated:
		return "updated"
	case StatusTracking:
		return "tracking"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "none"
	}
}

// StatusFromTrackingState maps a session tracking state onto a Status.
// Unrecognised states map to StatusNone.
func StatusFromTrackingState(ts session.TrackingState) Status {
	switch ts {
	case session.Tracking:
		return StatusTracking
	case session.Paused:
		return StatusPaused
	case session.Stopped:
		return StatusStopped
	default:
		return StatusNone
	}
}

// PlaneType is the sketch-facing classification of a planar trackable.
type PlaneType int

const (
	PlaneUnknown PlaneType = iota
	PlaneFloor
	PlaneCeiling
	PlaneWall
)

func (t PlaneType) String() string {
	switch t {
	case PlaneFloor:
		return "floor"
	case PlaneCeiling:
		return "ceiling"
	case PlaneWall:
		return "wall"
	default:
		return "unknown"
	}
}

// PlaneTypeFromSession maps the orientation reported by the session.
func PlaneTypeFromSession(pt session.PlaneType) PlaneType {
	switch pt {
	case session.HorizontalUpwardFacing:
		return PlaneFloor
	case session.HorizontalDownwardFacing:
		return PlaneCeiling
	case session.Vertical:
		return PlaneWall
	default:
		return PlaneUnknown
	}
}

// ErrIndexOutOfRange is wrapped by every IndexError. Indices are only
// valid within the frame they were read in; removal of a trackable shifts
// every later index down by one.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports a trackable or anchor index outside [0, Count).
type IndexError struct {
	Kind  string // "trackable" or "anchor"
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.Kind, e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// CheckIndex returns an *IndexError when i is outside [0, count).
func CheckIndex(kind string, i, count int) error {
	if i < 0 || i >= count {
		return &IndexError{Kind: kind, Index: i, Count: count}
	}
	return nil
}

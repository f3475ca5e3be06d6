package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/banshee-data/arlayer/internal/ar/anchors"
	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/ar/trackables"
	"github.com/banshee-data/arlayer/internal/monitoring"
)

// Recorder journals registry and anchor events for one session. Write
// failures are logged and never interrupt the frame.
type Recorder struct {
	store     *Store
	sessionID string

	// Generation supplies the frame generation for anchor events, which
	// do not carry one (optional).
	Generation func() uint64
}

var (
	_ trackables.Observer = (*Recorder)(nil)
	_ anchors.Observer    = (*Recorder)(nil)
)

// NewRecorder starts a new journal session. An empty sessionID gets a
// fresh uuid.
func NewRecorder(store *Store, sessionID string) *Recorder {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Recorder{store: store, sessionID: sessionID}
}

// SessionID is the id events are recorded under.
func (r *Recorder) SessionID() string { return r.sessionID }

func (r *Recorder) record(ev Event) {
	ev.SessionID = r.sessionID
	if _, err := r.store.Record(context.Background(), ev); err != nil {
		monitoring.Logf("[journal] %v", err)
	}
}

func (r *Recorder) generation() uint64 {
	if r.Generation == nil {
		return 0
	}
	return r.Generation()
}

func (r *Recorder) TrackableAdded(index int, h session.Handle, gen uint64) {
	r.record(Event{Kind: KindTrackableAdded, Handle: string(h), Index: index, Generation: gen})
}

func (r *Recorder) TrackableRemoved(h session.Handle, gen uint64) {
	r.record(Event{Kind: KindTrackableRemoved, Handle: string(h), Index: -1, Generation: gen})
}

func (r *Recorder) TrackableSelected(index int, h session.Handle, gen uint64) {
	r.record(Event{Kind: KindTrackableSelected, Handle: string(h), Index: index, Generation: gen})
}

func (r *Recorder) AnchorCreated(index int, trackable session.Handle, at pose.Pose) {
	r.record(Event{
		Kind:       KindAnchorCreated,
		Handle:     string(trackable),
		Index:      index,
		Generation: r.generation(),
		Detail:     poseDetail(at),
	})
}

func (r *Recorder) SelectionAnchorRebound(index int, at pose.Pose) {
	r.record(Event{
		Kind:       KindSelectionAnchorRebound,
		Index:      index,
		Generation: r.generation(),
		Detail:     poseDetail(at),
	})
}

func poseDetail(p pose.Pose) map[string]any {
	t, q := p.Translation, p.Rotation
	return map[string]any{
		"tx": float64(t[0]), "ty": float64(t[1]), "tz": float64(t[2]),
		"qw": float64(q.W), "qx": float64(q.V[0]), "qy": float64(q.V[1]), "qz": float64(q.V[2]),
	}
}

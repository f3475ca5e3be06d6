package selection

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/arlayer/internal/config"
	"github.com/banshee-data/arlayer/internal/timeutil"
)

// ErrInvalidCapacity is returned for a tap queue capacity below one.
var ErrInvalidCapacity = errors.New("tap queue capacity must be at least 1")

// OverflowPolicy decides what happens when a tap arrives at a full queue.
// Neither policy ever blocks the producer.
type OverflowPolicy int

const (
	// DropOldest discards the oldest queued tap to make room.
	DropOldest OverflowPolicy = iota
	// RejectNew discards the incoming tap.
	RejectNew
)

// ParseOverflowPolicy maps a config value onto a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case config.OverflowDropOldest, "":
		return DropOldest, nil
	case config.OverflowRejectNew:
		return RejectNew, nil
	default:
		return DropOldest, fmt.Errorf("unknown tap overflow policy %q", s)
	}
}

// Tap is a single-pointer touch in screen pixels.
type Tap struct {
	X, Y float32
	At   time.Time
}

// TapQueue is a bounded FIFO of taps, safe for concurrent use.
type TapQueue struct {
	mu      sync.Mutex
	buf     []Tap // ring buffer
	head    int
	n       int
	policy  OverflowPolicy
	dropped uint64
	clock   timeutil.Clock
}

// NewTapQueue creates a queue holding at most capacity taps.
func NewTapQueue(capacity int, policy OverflowPolicy) (*TapQueue, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &TapQueue{
		buf:    make([]Tap, capacity),
		policy: policy,
		clock:  timeutil.RealClock{},
	}, nil
}

// SetClock replaces the clock used to stamp taps offered without a time.
func (q *TapQueue) SetClock(c timeutil.Clock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clock = c
}

// Offer enqueues a tap. It returns false when the tap itself was dropped
// (RejectNew on a full queue); with DropOldest it always returns true.
func (q *TapQueue) Offer(t Tap) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.At.IsZero() {
		t.At = q.clock.Now()
	}
	if q.n == len(q.buf) {
		q.dropped++
		if q.policy == RejectNew {
			return false
		}
		q.head = (q.head + 1) % len(q.buf)
		q.n--
	}
	q.buf[(q.head+q.n)%len(q.buf)] = t
	q.n++
	return true
}

// OfferXY is a convenience for Offer(Tap{X: x, Y: y}).
func (q *TapQueue) OfferXY(x, y float32) bool {
	return q.Offer(Tap{X: x, Y: y})
}

// Poll removes and returns the oldest tap.
func (q *TapQueue) Poll() (Tap, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.n == 0 {
		return Tap{}, false
	}
	t := q.buf[q.head]
	q.buf[q.head] = Tap{}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return t, true
}

// Len returns the number of queued taps.
func (q *TapQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the queue capacity.
func (q *TapQueue) Cap() int {
	return len(q.buf)
}

// Dropped returns how many taps were lost to overflow.
func (q *TapQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

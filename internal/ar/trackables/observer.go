package trackables

import (
	"github.com/banshee-data/arlayer/internal/ar/session"
	"github.com/banshee-data/arlayer/internal/monitoring"
)

// LogObserver writes lifecycle events through monitoring.Logf.
type LogObserver struct{}

func (LogObserver) TrackableAdded(index int, h session.Handle, gen uint64) {
	monitoring.Logf("[ar] added trackable %s at index %d (frame %d)", h, index, gen)
}

func (LogObserver) TrackableRemoved(h session.Handle, gen uint64) {
	monitoring.Logf("[ar] removed trackable %s (frame %d)", h, gen)
}

func (LogObserver) TrackableSelected(index int, h session.Handle, gen uint64) {
	monitoring.Logf("[ar] selected trackable %s at index %d (frame %d)", h, index, gen)
}

// Observers fans events out to several observers in order. Nil entries
// are skipped.
type Observers []Observer

func (o Observers) TrackableAdded(index int, h session.Handle, gen uint64) {
	for _, ob := range o {
		if ob != nil {
			ob.TrackableAdded(index, h, gen)
		}
	}
}

func (o Observers) TrackableRemoved(h session.Handle, gen uint64) {
	for _, ob := range o {
		if ob != nil {
			ob.TrackableRemoved(h, gen)
		}
	}
}

func (o Observers) TrackableSelected(index int, h session.Handle, gen uint64) {
	for _, ob := range o {
		if ob != nil {
			ob.TrackableSelected(index, h, gen)
		}
	}
}

// Package stats aggregates the server-wide counters behind the stats
// message surface. Prometheus mirrors of these counts live next to the
// code paths that produce them.
package stats

import (
	"sync/atomic"
	"time"
)

// Tracker counts the frame pipeline. All methods are safe for
// concurrent use.
type Tracker struct {
	startedAt time.Time

	framesReceived  atomic.Uint64
	framesProcessed atomic.Uint64
	framesDropped   atomic.Uint64
	framesCorrupt   atomic.Uint64
	pointsDecoded   atomic.Uint64
	pointsBroadcast atomic.Uint64
	eventsEmitted   atomic.Uint64
}

func NewTracker() *Tracker {
	return &Tracker{startedAt: time.Now()}
}

// Snapshot is a copy of the counters at one point in time.
type Snapshot struct {
	UptimeSeconds   float64
	FramesReceived  uint64
	FramesProcessed uint64
	FramesDropped   uint64
	FramesCorrupt   uint64
	PointsDecoded   uint64
	PointsBroadcast uint64
	EventsEmitted   uint64
}

func (t *Tracker) CountFrameReceived() {
	t.framesReceived.Add(1)
}

func (t *Tracker) CountFrameProcessed() {
	t.framesProcessed.Add(1)
}

// CountFrameDropped records a frame that was superseded or arrived out
// of order. Dropped frames still count as received.
func (t *Tracker) CountFrameDropped() {
	t.framesDropped.Add(1)
}

func (t *Tracker) CountFrameCorrupt() {
	t.framesCorrupt.Add(1)
}

func (t *Tracker) CountPointsDecoded(n int) {
	if n > 0 {
		t.pointsDecoded.Add(uint64(n))
	}
}

func (t *Tracker) CountPointsBroadcast(n int) {
	if n > 0 {
		t.pointsBroadcast.Add(uint64(n))
	}
}

func (t *Tracker) CountEvents(n int) {
	if n > 0 {
		t.eventsEmitted.Add(uint64(n))
	}
}

func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:   time.Since(t.startedAt).Seconds(),
		FramesReceived:  t.framesReceived.Load(),
		FramesProcessed: t.framesProcessed.Load(),
		FramesDropped:   t.framesDropped.Load(),
		FramesCorrupt:   t.framesCorrupt.Load(),
		PointsDecoded:   t.pointsDecoded.Load(),
		PointsBroadcast: t.pointsBroadcast.Load(),
		EventsEmitted:   t.eventsEmitted.Load(),
	}
}

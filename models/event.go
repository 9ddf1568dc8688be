package models

import (
	"sync"
	"time"
)

// EventType labels an interaction event.
type EventType string

const (
	EventHoverStart  EventType = "hover_start"
	EventHoverEnd    EventType = "hover_end"
	EventDragStart   EventType = "drag_start"
	EventDragEnd     EventType = "drag_end"
	EventDeselect    EventType = "deselect"
	EventRotateStart EventType = "rotate_start"
	EventRotateEnd   EventType = "rotate_end"
	EventScaleStart  EventType = "scale_start"
	EventScaleEnd    EventType = "scale_end"
	EventConfirm     EventType = "confirm"
	EventCancel      EventType = "cancel"
	EventHandLost    EventType = "hand_lost"
)

// InteractionEvent records a single state machine transition.
type InteractionEvent struct {
	Type      EventType
	Hand      HandLabel
	ObjectID  uint32 // zero when the event has no target
	Timestamp time.Time
}

// DefaultEventLogCapacity is the ring size used when none is
// configured.
const DefaultEventLogCapacity = 256

// EventLog is a bounded ring of interaction events. Once the ring is
// full the oldest events are overwritten.
type EventLog struct {
	mutex  sync.Mutex
	events []InteractionEvent
	head   int
	size   int
	total  uint64
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogCapacity
	}
	return &EventLog{events: make([]InteractionEvent, capacity)}
}

func (l *EventLog) Append(e InteractionEvent) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.events[l.head] = e
	l.head = (l.head + 1) % len(l.events)
	if l.size < len(l.events) {
		l.size++
	}
	l.total++
}

// List returns the retained events from oldest to newest.
func (l *EventLog) List() []InteractionEvent {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	out := make([]InteractionEvent, l.size)
	start := l.head - l.size
	if start < 0 {
		start += len(l.events)
	}
	for i := range out {
		out[i] = l.events[(start+i)%len(l.events)]
	}
	return out
}

// Total returns the number of events ever appended, including the
// overwritten ones.
func (l *EventLog) Total() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.total
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventLogAppend(t *testing.T) {
	log := NewEventLog(4)

	log.Append(InteractionEvent{
		Type:      EventHoverStart,
		Hand:      HandLeft,
		ObjectID:  7,
		Timestamp: time.Now(),
	})

	events := log.List()
	require.Len(t, events, 1)
	require.Equal(t, EventHoverStart, events[0].Type)
	require.Equal(t, uint32(7), events[0].ObjectID)
	require.Equal(t, uint64(1), log.Total())
}

func TestEventLogWrapsAround(t *testing.T) {
	log := NewEventLog(3)

	for i := 1; i <= 5; i++ {
		log.Append(InteractionEvent{
			Type:     EventHoverStart,
			ObjectID: uint32(i),
		})
	}

	events := log.List()
	require.Len(t, events, 3)

	// Oldest first, keeping only the last three appends.
	require.Equal(t, uint32(3), events[0].ObjectID)
	require.Equal(t, uint32(4), events[1].ObjectID)
	require.Equal(t, uint32(5), events[2].ObjectID)
	require.Equal(t, uint64(5), log.Total())
}

func TestEventLogDefaultCapacity(t *testing.T) {
	log := NewEventLog(0)

	for i := 0; i < DefaultEventLogCapacity+10; i++ {
		log.Append(InteractionEvent{Type: EventHoverEnd})
	}

	require.Len(t, log.List(), DefaultEventLogCapacity)
}

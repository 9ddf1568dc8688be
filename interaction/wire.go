package interaction

import (
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
)

// ObjectStatesToWire converts a snapshot's objects to their wire form.
func ObjectStatesToWire(objects []ObjectSnapshot) []messages.ObjectState {
	states := make([]messages.ObjectState, len(objects))
	for i, o := range objects {
		state := messages.ObjectState{
			ID:    o.ID,
			Kind:  string(o.Kind),
			Color: o.Color,
			Demo:  o.Demo,
			Anchor: messages.BBox{
				X: o.Anchor.X,
				Y: o.Anchor.Y,
				W: o.Anchor.W,
				H: o.Anchor.H,
			},
			Offset:          messages.Vec2{X: o.Offset.X, Y: o.Offset.Y},
			RotationDegrees: o.RotationDegrees,
			Scale:           o.Scale,
			HoveredBy:       o.HoveredBy,
			SelectedBy:      o.SelectedBy,
		}
		if o.Is3D {
			state.Position3D = &messages.Vec3{
				X: o.Position3D.X,
				Y: o.Position3D.Y,
				Z: o.Position3D.Z,
			}
		}
		states[i] = state
	}
	return states
}

// HandStatesToWire converts a snapshot's hands to their wire form.
func HandStatesToWire(hands []HandSnapshot) []messages.HandState {
	states := make([]messages.HandState, 0, len(hands))
	for _, h := range hands {
		if !h.Visible {
			continue
		}
		states = append(states, messages.HandState{
			Hand:       h.Hand.String(),
			State:      string(h.State),
			Gesture:    string(h.Gesture),
			RawGesture: string(h.RawGesture),
			Confidence: h.Confidence,
			Position:   messages.Vec2{X: h.Position.X, Y: h.Position.Y},
			HoveredID:  h.HoveredID,
			SelectedID: h.SelectedID,
		})
	}
	return states
}

// EventsToWire converts interaction events to their wire form.
func EventsToWire(events []models.InteractionEvent) []messages.InteractionEvent {
	if len(events) == 0 {
		return nil
	}

	wire := make([]messages.InteractionEvent, len(events))
	for i, ev := range events {
		wire[i] = messages.InteractionEvent{
			Event:     string(ev.Type),
			Hand:      ev.Hand.String(),
			ObjectID:  ev.ObjectID,
			Timestamp: ev.Timestamp,
		}
	}
	return wire
}

// Package hnefi seeds and clears the demo object sets of a session.
// The objects it adds are the pieces the interaction engine moves.
package hnefi

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/interaction"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
)

type Module struct {
	// EngineConfig configures the session interaction engine when this
	// module is the first to attach it.
	EngineConfig interaction.Config

	currentSession     *models.Session
	currentParticipant *models.Participant
	engine             *interaction.Engine
}

func (m *Module) Name() string {
	return "hnefi"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p
	m.engine = interaction.SessionEngine(s, m.EngineConfig)
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	switch msg.Type {
	case messages.TypeParticipantJoinRequest:
		return m.handleParticipantJoin(ctx, respond, msg)

	case messages.TypeAddDemoObjects:
		return m.handleAddDemoObjects(ctx, respond, msg)

	case messages.TypeClearDemoObjects:
		return m.handleClearDemoObjects(ctx, respond, msg)

	default:
		return messages.ErrModuleMsgSkip
	}
}

func (m *Module) HandleDisconnect() {}

// handleParticipantJoin pushes the committed object state to a joiner,
// so a viewer that connects between frames is not blank until the next
// tick.
func (m *Module) handleParticipantJoin(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	snapshot := m.engine.LatestSnapshot()

	respond.Send(&messages.StateUpdate{
		Type:        messages.TypeStateUpdate,
		Timestamp:   time.Now(),
		FrameNumber: snapshot.FrameNumber,
		Objects:     interaction.ObjectStatesToWire(snapshot.Objects),
		Hands:       interaction.HandStatesToWire(snapshot.Hands),
	})
	return nil
}

func (m *Module) handleAddDemoObjects(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.AddDemoObjectsRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return errors.New("session not joined").
			WithType(messages.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	objects, err := interaction.DemoObjects(req.Set)
	if err != nil {
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeBadRequest,
			Message:   "unknown demo object set",
		})
		return nil
	}

	ids := make([]uint32, len(objects))
	for i, o := range objects {
		ids[i] = m.engine.Store().Add(o)
	}
	m.engine.Commit()

	now := time.Now()
	respond.Send(&messages.DemoObjectsAdded{
		Type:      messages.TypeDemoObjectsAdded,
		Timestamp: now,
		RequestID: req.RequestID,
		ObjectIDs: ids,
	})
	session.Broadcast(participant, &messages.DemoObjectsAdded{
		Type:      messages.TypeDemoObjectsAdded,
		Timestamp: now,
		ObjectIDs: ids,
	})
	return nil
}

func (m *Module) handleClearDemoObjects(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.ClearDemoObjectsRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return errors.New("session not joined").
			WithType(messages.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	removed := m.engine.Store().Clear()

	// Hands holding a removed object are resolved before anyone
	// observes the new state.
	m.engine.Commit()

	now := time.Now()
	respond.Send(&messages.DemoObjectsCleared{
		Type:      messages.TypeDemoObjectsCleared,
		Timestamp: now,
		RequestID: req.RequestID,
		Removed:   uint32(removed),
	})
	session.Broadcast(participant, &messages.DemoObjectsCleared{
		Type:      messages.TypeDemoObjectsCleared,
		Timestamp: now,
		Removed:   uint32(removed),
	})
	return nil
}

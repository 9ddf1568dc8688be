// Package straumr manages the per-session stream switches: which frame
// channels are rebroadcast, how point clouds are colored and how hard
// they are downsampled.
package straumr

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/pointcloud"
)

type Module struct {
	currentSession     *models.Session
	currentParticipant *models.Participant
	state              *State
}

func (m *Module) Name() string {
	return moduleName
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p
	m.state = SessionState(s)
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	switch msg.Type {
	case messages.TypeTogglePointCloud:
		return m.handleToggle(respond, msg, messages.TypePointCloudToggled, m.state.TogglePointCloud)

	case messages.TypeToggleDepth:
		return m.handleToggle(respond, msg, messages.TypeDepthToggled, m.state.ToggleDepth)

	case messages.TypeToggleObjects:
		return m.handleToggle(respond, msg, messages.TypeObjectsToggled, m.state.ToggleObjects)

	case messages.TypeToggleGestures:
		return m.handleToggle(respond, msg, messages.TypeGesturesToggled, m.state.ToggleGestures)

	case messages.TypeSetPointCloudColorMode:
		return m.handleSetColorMode(respond, msg)

	case messages.TypeSetPointCloudDownsample:
		return m.handleSetDownsample(respond, msg)

	default:
		return messages.ErrModuleMsgSkip
	}
}

func (m *Module) HandleDisconnect() {}

func (m *Module) handleToggle(respond messages.ResponseSender, msg messages.Msg, ack messages.Type, toggle func(*bool) bool) error {
	var req messages.ToggleRequest
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

	enabled := toggle(req.Enabled)

	now := time.Now()
	respond.Send(&messages.ToggleResponse{
		Type:      ack,
		Timestamp: now,
		RequestID: req.RequestID,
		Enabled:   enabled,
	})
	session.Broadcast(participant, &messages.ToggleResponse{
		Type:      ack,
		Timestamp: now,
		Enabled:   enabled,
	})
	return nil
}

func (m *Module) handleSetColorMode(respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.SetPointCloudColorModeRequest
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

	mode, err := pointcloud.ParseColorMode(req.Mode)
	if err != nil {
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeBadRequest,
			Message:   "unknown color mode",
		})
		return nil
	}

	m.state.SetColorMode(mode)

	now := time.Now()
	respond.Send(&messages.PointCloudColorModeChanged{
		Type:      messages.TypePointCloudColorModeChanged,
		Timestamp: now,
		RequestID: req.RequestID,
		Mode:      string(mode),
	})
	session.Broadcast(participant, &messages.PointCloudColorModeChanged{
		Type:      messages.TypePointCloudColorModeChanged,
		Timestamp: now,
		Mode:      string(mode),
	})
	return nil
}

func (m *Module) handleSetDownsample(respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.SetPointCloudDownsampleRequest
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

	factor := m.state.SetDownsample(req.Factor)

	now := time.Now()
	respond.Send(&messages.PointCloudDownsampleChanged{
		Type:      messages.TypePointCloudDownsampleChanged,
		Timestamp: now,
		RequestID: req.RequestID,
		Factor:    factor,
	})
	session.Broadcast(participant, &messages.PointCloudDownsampleChanged{
		Type:      messages.TypePointCloudDownsampleChanged,
		Timestamp: now,
		Factor:    factor,
	})
	return nil
}

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/modules"
	"github.com/aukilabs/tafl/modules/straumr"
	"github.com/aukilabs/tafl/pointcloud"
	"github.com/aukilabs/tafl/scenario"
	"github.com/stretchr/testify/require"
)

func TestStraumrTogglePointCloud(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(newStraumrTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var sessionID string

	err := scenario.NewScenario(clientA).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 1,
			}
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
			func(msg messages.Msg) error {
				var res messages.ParticipantJoinResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				sessionID = res.SessionID
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)

	disabled := false

	err = scenario.NewScenario(clientB).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 2,
				SessionID: sessionID,
			}
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
		).
		Send(func() messages.TypedMsg {
			return &messages.ToggleRequest{
				Type:      messages.TypeTogglePointCloud,
				Timestamp: time.Now(),
				RequestID: 3,
				Enabled:   &disabled,
			}
		}).
		Receive(
			scenario.FilterByRequestID(3),
			scenario.FilterByType(messages.TypePointCloudToggled),
			func(msg messages.Msg) error {
				var res messages.ToggleResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.False(t, res.Enabled)
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)

	cloud := pointcloud.Frame{
		Points: []pointcloud.Point{
			{X: 0.1, Y: 0.2, Z: 0.5},
			{X: 0.3, Y: 0.1, Z: 0.7},
		},
	}
	payload, err := pointcloud.Encode(cloud, pointcloud.EncodeOptions{})
	require.NoError(t, err)

	// The viewer hears the toggle first, so the frame that follows is
	// guaranteed to hit the updated settings.
	err = scenario.NewScenario(clientA).
		Receive(
			scenario.FilterByType(messages.TypePointCloudToggled),
			func(msg messages.Msg) error {
				var bc messages.ToggleResponse
				err := msg.DataTo(&bc)
				require.NoError(t, err)

				require.Zero(t, bc.RequestID)
				require.False(t, bc.Enabled)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.Frame{
				Type:        messages.TypeFrame,
				Timestamp:   time.Now(),
				FrameNumber: 1,
				PointCloud: &messages.PointCloud{
					Data:      payload,
					NumPoints: 2,
				},
			}
		}).
		Receive(
			scenario.FilterByType(messages.TypeStateUpdate),
			func(msg messages.Msg) error {
				var res messages.StateUpdate
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Nil(t, res.PointCloud)
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)
}

func TestStraumrToggleFlip(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newStraumrTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := scenario.NewScenario(clientA).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 1,
			}
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
		).
		Send(func() messages.TypedMsg {
			return &messages.ToggleRequest{
				Type:      messages.TypeToggleDepth,
				Timestamp: time.Now(),
				RequestID: 2,
			}
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(messages.TypeDepthToggled),
			func(msg messages.Msg) error {
				var res messages.ToggleResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.False(t, res.Enabled)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.ToggleRequest{
				Type:      messages.TypeToggleDepth,
				Timestamp: time.Now(),
				RequestID: 3,
			}
		}).
		Receive(
			scenario.FilterByRequestID(3),
			scenario.FilterByType(messages.TypeDepthToggled),
			func(msg messages.Msg) error {
				var res messages.ToggleResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.True(t, res.Enabled)
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)
}

func TestStraumrSetColorMode(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newStraumrTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cloud := pointcloud.Frame{
		Points: []pointcloud.Point{
			{X: 0.1, Y: 0.2, Z: 0.5},
			{X: 0.3, Y: 0.1, Z: 0.7},
			{X: 0.2, Y: 0.4, Z: 0.9},
		},
	}
	payload, err := pointcloud.Encode(cloud, pointcloud.EncodeOptions{})
	require.NoError(t, err)

	err = scenario.NewScenario(clientA).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 1,
			}
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
		).
		Send(func() messages.TypedMsg {
			return &messages.SetPointCloudColorModeRequest{
				Type:      messages.TypeSetPointCloudColorMode,
				Timestamp: time.Now(),
				RequestID: 2,
				Mode:      "height",
			}
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(messages.TypePointCloudColorModeChanged),
			func(msg messages.Msg) error {
				var res messages.PointCloudColorModeChanged
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, "height", res.Mode)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.Frame{
				Type:        messages.TypeFrame,
				Timestamp:   time.Now(),
				FrameNumber: 1,
				PointCloud: &messages.PointCloud{
					Data:      payload,
					NumPoints: 3,
				},
			}
		}).
		Receive(
			scenario.FilterByType(messages.TypeStateUpdate),
			func(msg messages.Msg) error {
				var res messages.StateUpdate
				err := msg.DataTo(&res)
				require.NoError(t, err)

				// A colorless upload comes back colored by the height
				// ramp.
				require.NotNil(t, res.PointCloud)
				require.True(t, res.PointCloud.HasColors)

				decoded, err := pointcloud.Decode(res.PointCloud.Data, res.PointCloud.Compressed, res.PointCloud.Quantized)
				require.NoError(t, err)
				require.True(t, decoded.HasColors())
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.SetPointCloudColorModeRequest{
				Type:      messages.TypeSetPointCloudColorMode,
				Timestamp: time.Now(),
				RequestID: 3,
				Mode:      "plasma",
			}
		}).
		Receive(
			scenario.FilterByRequestID(3),
			scenario.FilterByType(messages.TypeError),
			func(msg messages.Msg) error {
				var res messages.ErrorResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, messages.ErrorCodeBadRequest, res.Code)
				require.Equal(t, "unknown color mode", res.Message)
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)
}

func TestStraumrSetDownsample(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newStraumrTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	points := make([]pointcloud.Point, 8)
	for i := range points {
		points[i] = pointcloud.Point{X: float32(i), Y: 0, Z: 1}
	}
	payload, err := pointcloud.Encode(pointcloud.Frame{Points: points}, pointcloud.EncodeOptions{})
	require.NoError(t, err)

	err = scenario.NewScenario(clientA).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 1,
			}
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
		).
		Send(func() messages.TypedMsg {
			return &messages.SetPointCloudDownsampleRequest{
				Type:      messages.TypeSetPointCloudDownsample,
				Timestamp: time.Now(),
				RequestID: 2,
				Factor:    0,
			}
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(messages.TypePointCloudDownsampleChanged),
			func(msg messages.Msg) error {
				var res messages.PointCloudDownsampleChanged
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, straumr.MinDownsample, res.Factor)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.SetPointCloudDownsampleRequest{
				Type:      messages.TypeSetPointCloudDownsample,
				Timestamp: time.Now(),
				RequestID: 3,
				Factor:    100,
			}
		}).
		Receive(
			scenario.FilterByRequestID(3),
			scenario.FilterByType(messages.TypePointCloudDownsampleChanged),
			func(msg messages.Msg) error {
				var res messages.PointCloudDownsampleChanged
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, straumr.MaxDownsample, res.Factor)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.SetPointCloudDownsampleRequest{
				Type:      messages.TypeSetPointCloudDownsample,
				Timestamp: time.Now(),
				RequestID: 4,
				Factor:    4,
			}
		}).
		Receive(
			scenario.FilterByRequestID(4),
			scenario.FilterByType(messages.TypePointCloudDownsampleChanged),
			func(msg messages.Msg) error {
				var res messages.PointCloudDownsampleChanged
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, 4, res.Factor)
				return err
			},
		).
		Send(func() messages.TypedMsg {
			return &messages.Frame{
				Type:        messages.TypeFrame,
				Timestamp:   time.Now(),
				FrameNumber: 1,
				PointCloud: &messages.PointCloud{
					Data:      payload,
					NumPoints: 8,
				},
			}
		}).
		Receive(
			scenario.FilterByType(messages.TypeStateUpdate),
			func(msg messages.Msg) error {
				var res messages.StateUpdate
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.NotNil(t, res.PointCloud)
				require.Equal(t, uint32(2), res.PointCloud.NumPoints)
				return err
			},
		).
		Run(ctx)
	require.NoError(t, err)
}

func TestStraumrModuleToggleGestures(t *testing.T) {
	session := models.NewSession(1, time.Millisecond*50)
	defer session.Close()

	participant := &models.Participant{ID: session.NewParticipantID()}

	var m straumr.Module
	m.Init(session, participant)

	var sender TestResponseSender

	msg, err := messages.MsgFrom(&messages.ToggleRequest{
		Type:      messages.TypeToggleGestures,
		Timestamp: time.Now(),
		RequestID: 7,
	})
	require.NoError(t, err)

	err = m.HandleMsg(context.Background(), &sender, msg)
	require.NoError(t, err)

	msgs := sender.Msgs()
	require.Len(t, msgs, 1)
	require.Equal(t, messages.TypeGesturesToggled, msgs[0].Type)

	var res messages.ToggleResponse
	require.NoError(t, msgs[0].DataTo(&res))
	require.Equal(t, uint32(7), res.RequestID)
	require.False(t, res.Enabled)
	require.False(t, straumr.SessionState(session).Snapshot().Gestures)
}

func TestStraumrModuleHandleMsgNotJoined(t *testing.T) {
	var m straumr.Module
	var sender TestResponseSender

	msg, err := messages.MsgFrom(&messages.ToggleRequest{
		Type:      messages.TypeTogglePointCloud,
		Timestamp: time.Now(),
		RequestID: 1,
	})
	require.NoError(t, err)

	err = m.HandleMsg(context.Background(), &sender, msg)
	require.Error(t, err)
	require.True(t, errors.IsType(err, messages.ErrTypeSessionNotJoined))
	require.Empty(t, sender.Msgs())
}

func TestStraumrModuleHandleMsgSkip(t *testing.T) {
	session := models.NewSession(1, time.Millisecond*50)
	defer session.Close()

	participant := &models.Participant{ID: session.NewParticipantID()}

	var m straumr.Module
	m.Init(session, participant)

	var sender TestResponseSender

	msg, err := messages.MsgFrom(&messages.GetStatsRequest{
		Type:      messages.TypeGetStats,
		Timestamp: time.Now(),
		RequestID: 1,
	})
	require.NoError(t, err)

	err = m.HandleMsg(context.Background(), &sender, msg)
	require.Error(t, err)
	require.True(t, errors.IsType(err, messages.ErrTypeMsgSkip))
	require.Empty(t, sender.Msgs())
}

func newStraumrTestModule() modules.Module {
	return &straumr.Module{}
}

package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/featureflag"
	taflhttp "github.com/aukilabs/tafl/http"
	"github.com/aukilabs/tafl/interaction"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/modules"
	"github.com/aukilabs/tafl/modules/straumr"
	"github.com/aukilabs/tafl/pointcloud"
	"github.com/aukilabs/tafl/spatial"
	"github.com/aukilabs/tafl/stats"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// RealtimeHandler represents a service that manages one client
// connection: it relays sensor frames through the interaction engine
// and broadcasts the committed session state in realtime.
type RealtimeHandler struct {
	// The interval between each sync clock message sent to the connected
	// client.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The duration of a frame.
	FrameDuration time.Duration

	// The store that contains all the server sessions.
	Sessions *models.SessionStore

	// The modules that expand tafl features.
	Modules []modules.Module

	FeatureFlags featureflag.FeatureFlag

	// Tunes the interaction engine attached to joined sessions.
	EngineConfig interaction.Config

	// The server-wide counters behind get_stats and the admin stats
	// endpoint.
	Stats *stats.Tracker

	// The version reported in the welcome message.
	ServerVersion string

	// PointBudget caps how many points a state update carries after
	// level of detail reduction. Zero means no cap.
	PointBudget int

	// CompressionLevel is the zlib level for re-encoded state clouds.
	// Zero selects pointcloud.DefaultCompressionLevel.
	CompressionLevel int

	conn               *websocket.Conn
	currentSession     *models.Session
	currentParticipant *models.Participant

	stopFrameHandling func()

	clientID string
	latency  *models.LatencyTracker
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(taflhttp.HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
	h.latency = models.NewLatencyTracker(0)

	h.conn = conn
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.PingRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(&messages.PingResponse{
		Type:      messages.TypePingResponse,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
	})
	return nil
}

// HandleSyncClock handles a sync clock echoed back by the client. The
// echoed timestamp is the server clock at send time, so the round trip
// is measured against a single clock.
func (h *RealtimeHandler) HandleSyncClock(ctx context.Context, msg messages.Msg) error {
	var echo messages.SyncClock
	if err := msg.DataTo(&echo); err != nil {
		return err
	}

	if !echo.Timestamp.IsZero() {
		h.latency.Add(msg.Time.Sub(echo.Timestamp))
	}
	return nil
}

func (h *RealtimeHandler) HandleParticipantJoin(ctx context.Context, handleFrame func(), respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.ParticipantJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.currentSession != nil && h.Sessions.GlobalSessionID(h.currentSession.ID) == req.SessionID {
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeSessionAlreadyJoined,
		})
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveSession()
	}

	session, ok := h.Sessions.GetByGlobalID(req.SessionID)
	if !ok && req.SessionID != "" {
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			RequestID: req.RequestID,
			Code:      messages.ErrorCodeNotFound,
		})
		return nil
	}

	if !ok {
		session = models.NewSession(h.Sessions.NewID(), h.FrameDuration)
		if err := h.Sessions.Add(ctx, session); err != nil {
			respond.Send(&messages.ErrorResponse{
				Type:      messages.TypeError,
				Timestamp: time.Now(),
				RequestID: req.RequestID,
				Code:      messages.ErrorCodeInternalServerError,
			})
			return nil
		}
		go session.StartDispatchFrames()
	}

	interaction.SessionEngine(session, h.EngineConfig)

	participant := &models.Participant{
		ID:        session.NewParticipantID(),
		ClientID:  h.clientID,
		Responder: respond,
	}

	session.AddParticipant(participant)
	h.stopFrameHandling = session.HandleFrame(handleFrame)

	respond.Send(&messages.ParticipantJoinResponse{
		Type:          messages.TypeParticipantJoinResponse,
		Timestamp:     time.Now(),
		RequestID:     req.RequestID,
		SessionID:     h.Sessions.GlobalSessionID(session.ID),
		ParticipantID: participant.ID,
	})

	h.currentSession = session
	h.currentParticipant = participant

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableWelcome, func() {
		settings := straumr.SessionState(session).Snapshot()

		respond.Send(&messages.Welcome{
			Type:      messages.TypeWelcome,
			Timestamp: time.Now(),
			Message:   "connected to tafl",
			Config: messages.WelcomeConfig{
				ServerVersion:        h.ServerVersion,
				PointCloudEnabled:    settings.PointCloud,
				DepthEnabled:         settings.Depth,
				ObjectsEnabled:       settings.Objects,
				GesturesEnabled:      settings.Gestures,
				PointCloudColorMode:  string(settings.ColorMode),
				PointCloudDownsample: settings.Downsample,
				PointBudget:          h.PointBudget,
				FrameIntervalMS:      h.FrameDuration.Milliseconds(),
				Compression:          !h.FeatureFlags.IsSet(featureflag.FlagDisablePointCloudCompression),
			},
		})
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantJoinBroadcast, func() {
		session.Broadcast(participant, &messages.ParticipantJoinBroadcast{
			Type:          messages.TypeParticipantJoinBroadcast,
			Timestamp:     time.Now(),
			ParticipantID: participant.ID,
		})
	})

	for _, m := range h.Modules {
		m.Init(session, participant)
	}

	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveSession()
	}
}

// HandleFrameMsg runs one sensor frame through the session: decode the
// point cloud, advance the interaction engine one tick and broadcast
// the committed state. The first participant to post a frame becomes
// the session sensor, frames from anyone else are rejected.
func (h *RealtimeHandler) HandleFrameMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	participant := h.currentParticipant
	session := h.currentSession
	if participant == nil || session == nil {
		return errors.New("session not joined").
			WithType(messages.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	h.Stats.CountFrameReceived()

	var frame messages.Frame
	if err := msg.DataTo(&frame); err != nil {
		h.Stats.CountFrameCorrupt()
		instrumentFrameCorrupt()
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			Code:      messages.ErrorCodeBadRequest,
			Message:   "malformed frame",
		})
		return nil
	}

	engine := interaction.SessionEngine(session, h.EngineConfig)

	if sensorID, ok := engine.Sensor(); ok && sensorID != participant.ID {
		h.Stats.CountFrameDropped()
		instrumentFrameRejected()
		respond.Send(&messages.ErrorResponse{
			Type:      messages.TypeError,
			Timestamp: time.Now(),
			Code:      messages.ErrorCodeBadRequest,
			Message:   "another participant is streaming frames",
		})
		return nil
	}
	engine.SetSensor(participant.ID)

	settings := straumr.SessionState(session).Snapshot()

	var cloud *messages.PointCloud
	decodedPoints := 0
	if frame.PointCloud != nil && settings.PointCloud {
		decoded, err := pointcloud.Decode(frame.PointCloud.Data, frame.PointCloud.Compressed, frame.PointCloud.Quantized)
		if err != nil {
			h.Stats.CountFrameCorrupt()
			instrumentFrameCorrupt()
			respond.Send(&messages.ErrorResponse{
				Type:      messages.TypeError,
				Timestamp: time.Now(),
				Code:      messages.ErrorCodeBadRequest,
				Message:   "corrupt point cloud payload",
			})
			return nil
		}
		decodedPoints = decoded.Len()

		budget := decoded.Len() / settings.Downsample
		if h.PointBudget > 0 && budget > h.PointBudget {
			budget = h.PointBudget
		}
		if budget < 1 {
			budget = 1
		}

		reduced := pointcloud.Colorize(pointcloud.Reduce(decoded, budget), settings.ColorMode)

		compress := !h.FeatureFlags.IsSet(featureflag.FlagDisablePointCloudCompression)
		data, err := pointcloud.Encode(reduced, pointcloud.EncodeOptions{
			Quantize:         true,
			Compress:         compress,
			CompressionLevel: h.CompressionLevel,
		})
		if err != nil {
			return errors.New("encoding point cloud failed").Wrap(err)
		}

		bounds := reduced.Bounds()
		cloud = &messages.PointCloud{
			Data:       data,
			NumPoints:  uint32(reduced.Len()),
			Compressed: compress,
			Quantized:  true,
			HasColors:  reduced.HasColors(),
			Bounds: &messages.Bounds{
				Min:  messages.Vec3{X: bounds.Min.X, Y: bounds.Min.Y, Z: bounds.Min.Z},
				Size: messages.Vec3{X: bounds.Size.X, Y: bounds.Size.Y, Z: bounds.Size.Z},
			},
		}
	}

	hands := make([]interaction.HandUpdate, 0, len(frame.Hands))
	for _, hand := range frame.Hands {
		label, ok := models.ParseHandLabel(hand.Handedness)
		if !ok {
			continue
		}

		update := interaction.HandUpdate{
			Hand:       label,
			Gesture:    models.Gesture(hand.Gesture),
			Confidence: hand.Confidence,
			Position:   spatialVec2(hand.Center),
			BBoxArea:   hand.BBox.W * hand.BBox.H,
		}
		if hand.Position3D != nil {
			update.Position3D = spatialVec3(*hand.Position3D)
			update.Has3D = true
		}
		hands = append(hands, update)
	}

	ticks := engine.Ticks()
	snapshot, events := engine.Advance(interaction.FrameUpdate{
		FrameNumber: frame.FrameNumber,
		Time:        frame.Timestamp,
	}, hands)
	if engine.Ticks() == ticks {
		h.Stats.CountFrameDropped()
		instrumentFrameStale()
		return nil
	}

	h.Stats.CountFrameProcessed()
	h.Stats.CountPointsDecoded(decodedPoints)
	if cloud != nil {
		h.Stats.CountPointsBroadcast(int(cloud.NumPoints))
	}
	h.Stats.CountEvents(len(events))
	instrumentFrameProcessed()

	if h.FeatureFlags.IsSet(featureflag.FlagDisableStateBroadcast) {
		return nil
	}

	update := &messages.StateUpdate{
		Type:        messages.TypeStateUpdate,
		Timestamp:   time.Now(),
		FrameNumber: snapshot.FrameNumber,
		Objects:     interaction.ObjectStatesToWire(snapshot.Objects),
		PointCloud:  cloud,
		RGB:         frame.RGB,
	}
	if settings.Gestures {
		update.Hands = interaction.HandStatesToWire(snapshot.Hands)
		update.Events = interaction.EventsToWire(events)
	}
	if settings.Objects {
		update.Detections = frame.Objects
	}
	if settings.Depth {
		update.Depth = frame.Depth
	}

	respond.Send(update)
	session.Broadcast(participant, update)
	return nil
}

// HandleFrameDropped records a frame superseded by a newer one before
// it could be processed.
func (h *RealtimeHandler) HandleFrameDropped() {
	h.Stats.CountFrameReceived()
	h.Stats.CountFrameDropped()
}

func (h *RealtimeHandler) HandleGetStats(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.GetStatsRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	serverStats := ServerStats(h.Stats, h.Sessions)
	if h.latency != nil {
		serverStats.Latency = LatencyStats(h.latency.Metrics())
	}

	respond.Send(&messages.StatsResponse{
		Type:      messages.TypeStats,
		Timestamp: time.Now(),
		RequestID: req.RequestID,
		Stats:     serverStats,
	})
	return nil
}

func (h *RealtimeHandler) HandleWithModule(ctx context.Context, m modules.Module, respond messages.ResponseSender, msg messages.Msg) error {
	if h.CurrentParticipant() == nil || h.CurrentSession() == nil {
		return nil
	}

	err := m.HandleMsg(ctx, respond, msg)
	if errors.IsType(err, messages.ErrTypeMsgSkip) {
		return nil
	}
	if err != nil {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return nil
}

func (h *RealtimeHandler) SendSyncClock(ctx context.Context, respond messages.ResponseSender) error {
	respond.Send(&messages.SyncClock{
		Type:      messages.TypeSyncClock,
		Timestamp: time.Now(),
	})
	return nil
}

func (h *RealtimeHandler) Receiver() messages.Receiver {
	return messages.NewReceiver(h.conn)
}

func (h *RealtimeHandler) Sender() messages.Sender {
	return messages.NewSender(h.conn)
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) SyncClockInterval() time.Duration {
	return h.ClientSyncClockInterval
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetSessions() *models.SessionStore {
	return h.Sessions
}

func (h *RealtimeHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *RealtimeHandler) CurrentSession() *models.Session {
	return h.currentSession
}

func (h *RealtimeHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) leaveSession() {
	session := h.currentSession
	participant := h.currentParticipant

	if participant == nil || session == nil {
		return
	}

	for _, m := range h.Modules {
		m.HandleDisconnect()
	}

	now := time.Now()

	// A leaving sensor takes its hands with it. Locks are released and
	// viewers get a final state update with the hands gone.
	if engine, ok := interaction.AttachedEngine(session); ok && engine.ClearSensor(participant.ID) {
		snapshot, events := engine.ResetHands()

		h.FeatureFlags.IfNotSet(featureflag.FlagDisableStateBroadcast, func() {
			session.Broadcast(participant, &messages.StateUpdate{
				Type:        messages.TypeStateUpdate,
				Timestamp:   now,
				FrameNumber: snapshot.FrameNumber,
				Objects:     interaction.ObjectStatesToWire(snapshot.Objects),
				Hands:       interaction.HandStatesToWire(snapshot.Hands),
				Events:      interaction.EventsToWire(events),
			})
		})
	}

	if h.stopFrameHandling != nil {
		h.stopFrameHandling()
	}
	session.RemoveParticipant(participant)

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantLeaveBroadcast, func() {
		session.Broadcast(participant, &messages.ParticipantLeaveBroadcast{
			Type:          messages.TypeParticipantLeaveBroadcast,
			Timestamp:     now,
			ParticipantID: participant.ID,
		})
	})

	if session.ParticipantCount() == 0 {
		h.Sessions.Remove(context.Background(), session)
	}

	h.currentParticipant = nil
	h.currentSession = nil
}

// ServerStats aggregates the tracker counters with the live session,
// participant and object counts.
func ServerStats(t *stats.Tracker, sessions *models.SessionStore) messages.ServerStats {
	snap := t.Snapshot()

	participants := 0
	objects := 0
	for _, s := range sessions.List() {
		participants += s.ParticipantCount()
		if engine, ok := interaction.AttachedEngine(s); ok {
			objects += engine.Store().Len()
		}
	}

	return messages.ServerStats{
		UptimeSeconds:   snap.UptimeSeconds,
		Sessions:        sessions.Len(),
		Participants:    participants,
		Objects:         objects,
		FramesReceived:  snap.FramesReceived,
		FramesProcessed: snap.FramesProcessed,
		FramesDropped:   snap.FramesDropped,
		FramesCorrupt:   snap.FramesCorrupt,
		PointsDecoded:   snap.PointsDecoded,
		PointsBroadcast: snap.PointsBroadcast,
		EventsEmitted:   snap.EventsEmitted,
	}
}

// LatencyStats converts tracker metrics to their wire form. It returns
// nil when no sample was collected yet.
func LatencyStats(m models.LatencyMetrics) *messages.LatencyStats {
	if m.Samples == 0 {
		return nil
	}
	return &messages.LatencyStats{
		Min:     durationMS(m.Min),
		Max:     durationMS(m.Max),
		Mean:    durationMS(m.Mean),
		P95:     durationMS(m.P95),
		Samples: m.Samples,
	}
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func spatialVec2(v messages.Vec2) spatial.Vector2f {
	return spatial.NewVector2f(v.X, v.Y)
}

func spatialVec3(v messages.Vec3) spatial.Vector3f {
	return spatial.NewVector3f(v.X, v.Y, v.Z)
}

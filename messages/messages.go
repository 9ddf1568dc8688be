// Package messages defines the wire protocol spoken between sensors,
// viewers and the tafl server. Every message is a JSON document with a
// "type" field. Binary point cloud payloads travel inside the JSON as
// base64 strings.
package messages

import "time"

// Type identifies a protocol message.
type Type string

const (
	TypeError Type = "error_response"

	TypeParticipantJoinRequest    Type = "participant_join_request"
	TypeParticipantJoinResponse   Type = "participant_join_response"
	TypeParticipantJoinBroadcast  Type = "participant_join_broadcast"
	TypeParticipantLeaveBroadcast Type = "participant_leave_broadcast"
	TypeWelcome                   Type = "welcome"

	TypePingRequest  Type = "ping_request"
	TypePingResponse Type = "ping_response"
	TypeSyncClock    Type = "sync_clock"

	TypeFrame       Type = "frame"
	TypeStateUpdate Type = "state_update"

	TypeAddDemoObjects     Type = "add_demo_objects"
	TypeDemoObjectsAdded   Type = "demo_objects_added"
	TypeClearDemoObjects   Type = "clear_demo_objects"
	TypeDemoObjectsCleared Type = "demo_objects_cleared"

	TypeTogglePointCloud            Type = "toggle_pointcloud"
	TypePointCloudToggled           Type = "pointcloud_toggled"
	TypeToggleDepth                 Type = "toggle_depth"
	TypeDepthToggled                Type = "depth_toggled"
	TypeToggleObjects               Type = "toggle_objects"
	TypeObjectsToggled              Type = "objects_toggled"
	TypeToggleGestures              Type = "toggle_gestures"
	TypeGesturesToggled             Type = "gestures_toggled"
	TypeSetPointCloudColorMode      Type = "set_pointcloud_color_mode"
	TypePointCloudColorModeChanged  Type = "pointcloud_color_mode_changed"
	TypeSetPointCloudDownsample     Type = "set_pointcloud_downsample"
	TypePointCloudDownsampleChanged Type = "pointcloud_downsample_changed"

	TypeGetStats Type = "get_stats"
	TypeStats    Type = "stats"
)

// ErrorCode qualifies an error response.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeSessionNotJoined     ErrorCode = "session_not_joined"
	ErrorCodeSessionAlreadyJoined ErrorCode = "session_already_joined"
	ErrorCodeTooLarge             ErrorCode = "too_large"
	ErrorCodeInternalServerError  ErrorCode = "internal_server_error"
)

type ErrorResponse struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message,omitempty"`
}

func (m *ErrorResponse) MsgType() Type { return m.Type }

type ParticipantJoinRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
	SessionID string    `json:"session_id,omitempty"`
}

func (m *ParticipantJoinRequest) MsgType() Type { return m.Type }

type ParticipantJoinResponse struct {
	Type          Type      `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     uint32    `json:"request_id"`
	SessionID     string    `json:"session_id"`
	ParticipantID uint32    `json:"participant_id"`
}

func (m *ParticipantJoinResponse) MsgType() Type { return m.Type }

type ParticipantJoinBroadcast struct {
	Type          Type      `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ParticipantID uint32    `json:"participant_id"`
}

func (m *ParticipantJoinBroadcast) MsgType() Type { return m.Type }

type ParticipantLeaveBroadcast struct {
	Type          Type      `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ParticipantID uint32    `json:"participant_id"`
}

func (m *ParticipantLeaveBroadcast) MsgType() Type { return m.Type }

// WelcomeConfig is the settings snapshot sent to a participant right
// after it joins a session.
type WelcomeConfig struct {
	ServerVersion        string `json:"server_version"`
	PointCloudEnabled    bool   `json:"pointcloud_enabled"`
	DepthEnabled         bool   `json:"depth_enabled"`
	ObjectsEnabled       bool   `json:"objects_enabled"`
	GesturesEnabled      bool   `json:"gestures_enabled"`
	PointCloudColorMode  string `json:"pointcloud_color_mode"`
	PointCloudDownsample int    `json:"pointcloud_downsample"`
	PointBudget          int    `json:"point_budget"`
	FrameIntervalMS      int64  `json:"frame_interval_ms"`
	Compression          bool   `json:"compression"`
}

type Welcome struct {
	Type      Type          `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message,omitempty"`
	Config    WelcomeConfig `json:"config"`
}

func (m *Welcome) MsgType() Type { return m.Type }

type PingRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
}

func (m *PingRequest) MsgType() Type { return m.Type }

type PingResponse struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
}

func (m *PingResponse) MsgType() Type { return m.Type }

type SyncClock struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *SyncClock) MsgType() Type { return m.Type }

type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type BBox struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	W float32 `json:"w"`
	H float32 `json:"h"`
}

// Bounds describes the quantization box of a point cloud payload. It is
// informational on the wire, the authoritative bounds live inside the
// binary payload itself.
type Bounds struct {
	Min  Vec3 `json:"min"`
	Size Vec3 `json:"size"`
}

// PointCloud carries an encoded point cloud payload.
type PointCloud struct {
	Data       []byte  `json:"data"`
	NumPoints  uint32  `json:"num_points"`
	Compressed bool    `json:"compressed"`
	Quantized  bool    `json:"quantized"`
	HasColors  bool    `json:"has_colors"`
	Bounds     *Bounds `json:"bounds,omitempty"`
}

// Hand is a hand observation reported by the sensor.
type Hand struct {
	Handedness string  `json:"handedness"`
	Gesture    string  `json:"gesture"`
	Confidence float32 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
	Center     Vec2    `json:"center"`
	Position3D *Vec3   `json:"position_3d,omitempty"`
}

// DetectedObject is a passthrough object detection reported by the
// sensor. Detections are forwarded to viewers but never enter the
// interactive object store.
type DetectedObject struct {
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
	Center     Vec2    `json:"center"`
}

// Frame is the per-tick sensor upload driving a session.
type Frame struct {
	Type        Type             `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	FrameNumber uint64           `json:"frame_number"`
	PointCloud  *PointCloud      `json:"pointcloud,omitempty"`
	Hands       []Hand           `json:"hands,omitempty"`
	Objects     []DetectedObject `json:"objects,omitempty"`
	RGB         []byte           `json:"rgb,omitempty"`
	Depth       []byte           `json:"depth,omitempty"`
}

func (m *Frame) MsgType() Type { return m.Type }

// ObjectState is the committed state of an interactive object.
type ObjectState struct {
	ID              uint32  `json:"id"`
	Kind            string  `json:"kind"`
	Color           string  `json:"color,omitempty"`
	Demo            bool    `json:"demo,omitempty"`
	Anchor          BBox    `json:"anchor"`
	Position3D      *Vec3   `json:"position_3d,omitempty"`
	Offset          Vec2    `json:"offset"`
	RotationDegrees float32 `json:"rotation_degrees"`
	Scale           float32 `json:"scale"`
	HoveredBy       string  `json:"hovered_by,omitempty"`
	SelectedBy      string  `json:"selected_by,omitempty"`
}

// HandState is the committed state of a tracked hand.
type HandState struct {
	Hand       string  `json:"hand"`
	State      string  `json:"state"`
	Gesture    string  `json:"gesture"`
	RawGesture string  `json:"raw_gesture,omitempty"`
	Confidence float32 `json:"confidence"`
	Position   Vec2    `json:"position"`
	HoveredID  uint32  `json:"hovered_id,omitempty"`
	SelectedID uint32  `json:"selected_id,omitempty"`
}

// InteractionEvent records a state machine transition.
type InteractionEvent struct {
	Event     string    `json:"event"`
	Hand      string    `json:"hand"`
	ObjectID  uint32    `json:"object_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StateUpdate is the broadcast snapshot of a session tick.
type StateUpdate struct {
	Type        Type               `json:"type"`
	Timestamp   time.Time          `json:"timestamp"`
	FrameNumber uint64             `json:"frame_number"`
	Objects     []ObjectState      `json:"objects"`
	Hands       []HandState        `json:"hands"`
	Events      []InteractionEvent `json:"events,omitempty"`
	PointCloud  *PointCloud        `json:"pointcloud,omitempty"`
	Detections  []DetectedObject   `json:"detections,omitempty"`
	RGB         []byte             `json:"rgb,omitempty"`
	Depth       []byte             `json:"depth,omitempty"`
}

func (m *StateUpdate) MsgType() Type { return m.Type }

type AddDemoObjectsRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
	Set       string    `json:"set,omitempty"`
}

func (m *AddDemoObjectsRequest) MsgType() Type { return m.Type }

type DemoObjectsAdded struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	ObjectIDs []uint32  `json:"object_ids"`
}

func (m *DemoObjectsAdded) MsgType() Type { return m.Type }

type ClearDemoObjectsRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
}

func (m *ClearDemoObjectsRequest) MsgType() Type { return m.Type }

type DemoObjectsCleared struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	Removed   uint32    `json:"removed"`
}

func (m *DemoObjectsCleared) MsgType() Type { return m.Type }

// ToggleRequest flips or sets one of the session stream switches. When
// Enabled is absent the switch flips, otherwise it is set explicitly.
type ToggleRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
	Enabled   *bool     `json:"enabled,omitempty"`
}

func (m *ToggleRequest) MsgType() Type { return m.Type }

type ToggleResponse struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	Enabled   bool      `json:"enabled"`
}

func (m *ToggleResponse) MsgType() Type { return m.Type }

type SetPointCloudColorModeRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
	Mode      string    `json:"mode"`
}

func (m *SetPointCloudColorModeRequest) MsgType() Type { return m.Type }

type PointCloudColorModeChanged struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	Mode      string    `json:"mode"`
}

func (m *PointCloudColorModeChanged) MsgType() Type { return m.Type }

type SetPointCloudDownsampleRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
	Factor    int       `json:"factor"`
}

func (m *SetPointCloudDownsampleRequest) MsgType() Type { return m.Type }

type PointCloudDownsampleChanged struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id,omitempty"`
	Factor    int       `json:"factor"`
}

func (m *PointCloudDownsampleChanged) MsgType() Type { return m.Type }

type GetStatsRequest struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID uint32    `json:"request_id"`
}

func (m *GetStatsRequest) MsgType() Type { return m.Type }

// LatencyStats summarizes the round trip times measured against a
// client, in milliseconds.
type LatencyStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	P95     float64 `json:"p95"`
	Samples int     `json:"samples"`
}

type ServerStats struct {
	UptimeSeconds   float64       `json:"uptime_seconds"`
	Sessions        int           `json:"sessions"`
	Participants    int           `json:"participants"`
	Objects         int           `json:"objects"`
	FramesReceived  uint64        `json:"frames_received"`
	FramesProcessed uint64        `json:"frames_processed"`
	FramesDropped   uint64        `json:"frames_dropped"`
	FramesCorrupt   uint64        `json:"frames_corrupt"`
	PointsDecoded   uint64        `json:"points_decoded"`
	PointsBroadcast uint64        `json:"points_broadcast"`
	EventsEmitted   uint64        `json:"events_emitted"`
	Latency         *LatencyStats `json:"latency,omitempty"`
}

type StatsResponse struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID uint32      `json:"request_id,omitempty"`
	Stats     ServerStats `json:"stats"`
}

func (m *StatsResponse) MsgType() Type { return m.Type }

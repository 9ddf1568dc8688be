package featureflag

type Flag string

const (
	FlagDisableWelcome                   Flag = "DISABLE_WELCOME"
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableStateBroadcast            Flag = "DISABLE_STATE_BROADCAST"
	FlagDisableGestureCoalescing         Flag = "DISABLE_GESTURE_COALESCING"
	FlagDisablePointCloudCompression     Flag = "DISABLE_POINTCLOUD_COMPRESSION"
	FlagDisableScaleByDepth              Flag = "DISABLE_SCALE_BY_DEPTH"
)

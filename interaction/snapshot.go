package interaction

import (
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/spatial"
)

// ObjectSnapshot is the committed view of one interactive object at the
// end of a tick.
type ObjectSnapshot struct {
	ID              uint32
	Kind            models.ObjectKind
	Color           string
	Demo            bool
	Is3D            bool
	Anchor          spatial.Box
	Position        spatial.Vector2f
	Position3D      spatial.Vector3f
	Offset          spatial.Vector2f
	RotationDegrees float32
	Scale           float32
	HoveredBy       string
	SelectedBy      string
}

// HandSnapshot is the committed view of one tracked hand at the end of
// a tick.
type HandSnapshot struct {
	Hand       models.HandLabel
	Visible    bool
	State      models.InteractionState
	Gesture    models.Gesture
	RawGesture models.Gesture
	Confidence float32
	Position   spatial.Vector2f
	Position3D spatial.Vector3f
	HoveredID  uint32
	SelectedID uint32
}

// Snapshot is the state published at the end of a tick. Readers only
// ever see whole snapshots, never a tick in progress.
type Snapshot struct {
	Tick        uint64
	FrameNumber uint64
	Objects     []ObjectSnapshot
	Hands       []HandSnapshot
}

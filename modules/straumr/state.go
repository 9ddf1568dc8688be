package straumr

import (
	"sync"

	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/pointcloud"
)

const (
	moduleName = "straumr"

	// MinDownsample and MaxDownsample bound the stride a client can ask
	// the point cloud reducer for.
	MinDownsample = 1
	MaxDownsample = 8
)

// Settings is a copy of the stream switches at one point in time.
type Settings struct {
	PointCloud bool
	Depth      bool
	Objects    bool
	Gestures   bool
	ColorMode  pointcloud.ColorMode
	Downsample int
}

// DefaultDownsample seeds the factor of freshly created states. It is
// set once at startup, before any session exists.
var DefaultDownsample = MinDownsample

// State holds the stream switches of one session. All participants
// share them, the last write wins.
type State struct {
	mutex sync.RWMutex

	pointCloud bool
	depth      bool
	objects    bool
	gestures   bool
	colorMode  pointcloud.ColorMode
	downsample int
}

func NewState() *State {
	s := &State{
		pointCloud: true,
		depth:      true,
		objects:    true,
		gestures:   true,
		colorMode:  pointcloud.ColorModeRGB,
	}
	s.SetDownsample(DefaultDownsample)
	return s
}

// SessionState returns the stream settings attached to the session,
// creating defaults on first use.
func SessionState(s *models.Session) *State {
	state := s.ModuleStateOrSet(moduleName, func() any {
		return NewState()
	})
	settings, _ := state.(*State)
	return settings
}

// TogglePointCloud flips the switch, or sets it when set is non-nil. It
// returns the resulting value.
func (s *State) TogglePointCloud(set *bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pointCloud = toggled(s.pointCloud, set)
	return s.pointCloud
}

func (s *State) ToggleDepth(set *bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.depth = toggled(s.depth, set)
	return s.depth
}

func (s *State) ToggleObjects(set *bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.objects = toggled(s.objects, set)
	return s.objects
}

func (s *State) ToggleGestures(set *bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.gestures = toggled(s.gestures, set)
	return s.gestures
}

func (s *State) SetColorMode(mode pointcloud.ColorMode) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.colorMode = mode
}

// SetDownsample clamps the factor into [MinDownsample, MaxDownsample],
// stores it and returns the clamped value.
func (s *State) SetDownsample(factor int) int {
	if factor < MinDownsample {
		factor = MinDownsample
	}
	if factor > MaxDownsample {
		factor = MaxDownsample
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.downsample = factor
	return factor
}

// Snapshot returns a copy of the current switches.
func (s *State) Snapshot() Settings {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return Settings{
		PointCloud: s.pointCloud,
		Depth:      s.depth,
		Objects:    s.objects,
		Gestures:   s.gestures,
		ColorMode:  s.colorMode,
		Downsample: s.downsample,
	}
}

func toggled(current bool, set *bool) bool {
	if set != nil {
		return *set
	}
	return !current
}

package straumr

import (
	"testing"
	"time"

	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/pointcloud"
	"github.com/stretchr/testify/require"
)

func TestStateToggle(t *testing.T) {
	t.Run("toggle without a value flips", func(t *testing.T) {
		s := NewState()

		require.False(t, s.TogglePointCloud(nil))
		require.True(t, s.TogglePointCloud(nil))
	})

	t.Run("toggle with a value sets", func(t *testing.T) {
		s := NewState()

		enabled := false
		require.False(t, s.ToggleDepth(&enabled))
		require.False(t, s.ToggleDepth(&enabled))

		enabled = true
		require.True(t, s.ToggleDepth(&enabled))
	})

	t.Run("switches are independent", func(t *testing.T) {
		s := NewState()

		s.ToggleObjects(nil)
		snapshot := s.Snapshot()
		require.False(t, snapshot.Objects)
		require.True(t, snapshot.Gestures)
		require.True(t, snapshot.PointCloud)
	})
}

func TestStateSetDownsample(t *testing.T) {
	tests := []struct {
		factor   int
		expected int
	}{
		{0, MinDownsample},
		{-3, MinDownsample},
		{1, 1},
		{4, 4},
		{8, 8},
		{9, MaxDownsample},
	}

	for _, test := range tests {
		s := NewState()
		require.Equal(t, test.expected, s.SetDownsample(test.factor))
		require.Equal(t, test.expected, s.Snapshot().Downsample)
	}
}

func TestStateDefaults(t *testing.T) {
	snapshot := NewState().Snapshot()

	require.True(t, snapshot.PointCloud)
	require.True(t, snapshot.Depth)
	require.True(t, snapshot.Objects)
	require.True(t, snapshot.Gestures)
	require.Equal(t, pointcloud.ColorModeRGB, snapshot.ColorMode)
	require.Equal(t, MinDownsample, snapshot.Downsample)
}

func TestSessionState(t *testing.T) {
	session := models.NewSession(1, time.Second)
	defer session.Close()

	a := SessionState(session)
	b := SessionState(session)
	require.Same(t, a, b)

	a.SetColorMode(pointcloud.ColorModeHeight)
	require.Equal(t, pointcloud.ColorModeHeight, b.Snapshot().ColorMode)
}

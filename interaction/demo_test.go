package interaction

import (
	"testing"

	"github.com/aukilabs/tafl/models"
	"github.com/stretchr/testify/require"
)

func TestDemoObjects(t *testing.T) {
	t.Run("flat set", func(t *testing.T) {
		objects, err := DemoObjects(DemoSetFlat)
		require.NoError(t, err)
		require.Len(t, objects, 6)

		for _, o := range objects {
			require.True(t, o.Demo)
			require.False(t, o.Is3D)
			require.Equal(t, float32(100), o.Anchor.W)
			require.Equal(t, float32(100), o.Anchor.H)
		}

		require.Equal(t, models.KindCircle, objects[0].Kind)
		require.Equal(t, "#ef4444", objects[0].Color)
		require.Equal(t, float32(80), objects[0].Anchor.X)
		require.Equal(t, models.KindHexagon, objects[5].Kind)
	})

	t.Run("volumetric set", func(t *testing.T) {
		objects, err := DemoObjects(DemoSetVolumetric)
		require.NoError(t, err)
		require.Len(t, objects, 4)

		for _, o := range objects {
			require.True(t, o.Demo)
			require.True(t, o.Is3D)
		}

		require.Equal(t, models.KindSphere, objects[0].Kind)
		require.Equal(t, float32(-0.15), objects[0].Position3DValue().X)
		require.Equal(t, models.KindTorus, objects[3].Kind)
	})

	t.Run("empty set returns both", func(t *testing.T) {
		objects, err := DemoObjects("")
		require.NoError(t, err)
		require.Len(t, objects, 10)
		require.False(t, objects[0].Is3D)
		require.True(t, objects[9].Is3D)
	})

	t.Run("unknown set is rejected", func(t *testing.T) {
		_, err := DemoObjects("4d")
		require.Error(t, err)
	})
}

func TestCoalesceGesture(t *testing.T) {
	tests := []struct {
		gesture  models.Gesture
		previous models.Gesture
		expected models.Gesture
	}{
		{models.GestureClosedFist, models.GestureUnknown, models.GestureClosedFist},
		{models.GesturePinch, models.GestureUnknown, models.GestureClosedFist},
		{models.GestureGrab, models.GestureUnknown, models.GestureClosedFist},
		{models.GestureThumbsUp, models.GestureUnknown, models.GestureClosedFist},
		{models.GestureThumbsDown, models.GestureUnknown, models.GestureClosedFist},
		{models.GestureOpenPalm, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureFour, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureThree, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureOKSign, models.GestureUnknown, models.GestureOpenPalm},
		{models.GesturePeaceSign, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureLove, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureRock, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureCallMe, models.GestureUnknown, models.GestureOpenPalm},
		{models.GestureSpiderman, models.GestureUnknown, models.GestureOpenPalm},
		{models.GesturePointing, models.GestureClosedFist, models.GestureClosedFist},
		{models.GestureGun, models.GestureOpenPalm, models.GestureOpenPalm},
		{models.GestureUnknown, models.GestureClosedFist, models.GestureClosedFist},
	}

	for _, test := range tests {
		t.Run(string(test.gesture)+" after "+string(test.previous), func(t *testing.T) {
			require.Equal(t, test.expected, CoalesceGesture(test.gesture, test.previous))
		})
	}
}

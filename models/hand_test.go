package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHandLabel(t *testing.T) {
	utests := []struct {
		in       string
		expected HandLabel
		err      bool
	}{
		{in: "left", expected: HandLeft},
		{in: "Left", expected: HandLeft},
		{in: "right", expected: HandRight},
		{in: "Right", expected: HandRight},
		{in: "middle", err: true},
		{in: "", err: true},
	}

	for _, u := range utests {
		t.Run(u.in, func(t *testing.T) {
			label, ok := ParseHandLabel(u.in)
			if u.err {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Equal(t, u.expected, label)
		})
	}
}

func TestHandLabelString(t *testing.T) {
	require.Equal(t, "left", HandLeft.String())
	require.Equal(t, "right", HandRight.String())
}

func TestInteractionStateMutating(t *testing.T) {
	utests := []struct {
		state    InteractionState
		mutating bool
	}{
		{state: StateIdle},
		{state: StateHover},
		{state: StateSelected},
		{state: StateMenu},
		{state: StateDragging, mutating: true},
		{state: StateRotating, mutating: true},
		{state: StateScaling, mutating: true},
	}

	for _, u := range utests {
		t.Run(string(u.state), func(t *testing.T) {
			require.Equal(t, u.mutating, u.state.Mutating())
		})
	}
}

package models

// HandLabel identifies one of the two tracked hands.
type HandLabel uint8

const (
	HandLeft HandLabel = iota
	HandRight

	// NumHandLabels sizes fixed per-hand arrays.
	NumHandLabels
)

// Other returns the opposite hand label.
func (l HandLabel) Other() HandLabel {
	if l == HandLeft {
		return HandRight
	}
	return HandLeft
}

func (l HandLabel) String() string {
	switch l {
	case HandLeft:
		return "left"

	case HandRight:
		return "right"

	default:
		return "unknown"
	}
}

// ParseHandLabel maps a sensor handedness string to a hand label. Both
// the lowercase form and the capitalized form emitted by hand tracking
// models are accepted.
func ParseHandLabel(s string) (HandLabel, bool) {
	switch s {
	case "left", "Left":
		return HandLeft, true

	case "right", "Right":
		return HandRight, true

	default:
		return 0, false
	}
}

// Gesture is a hand gesture symbol reported by the sensor. The
// vocabulary is open, unrecognized symbols flow through as-is and are
// treated like GestureUnknown by interaction policies.
type Gesture string

const (
	GestureUnknown    Gesture = "unknown"
	GestureOpenPalm   Gesture = "open_palm"
	GestureClosedFist Gesture = "closed_fist"
	GesturePinch      Gesture = "pinch"
	GesturePointing   Gesture = "pointing"
	GestureGrab       Gesture = "grab"
	GestureGun        Gesture = "gun"
	GestureThumbsUp   Gesture = "thumbs_up"
	GestureThumbsDown Gesture = "thumbs_down"
	GestureFour       Gesture = "four"
	GestureThree      Gesture = "three"
	GestureOKSign     Gesture = "ok_sign"
	GesturePeaceSign  Gesture = "peace_sign"
	GestureLove       Gesture = "love"
	GestureRock       Gesture = "rock"
	GestureCallMe     Gesture = "call_me"
	GestureSpiderman  Gesture = "spiderman"
)

// InteractionState is a state of the per-hand interaction state
// machine.
type InteractionState string

const (
	StateIdle     InteractionState = "idle"
	StateHover    InteractionState = "hover"
	StateDragging InteractionState = "dragging"
	StateSelected InteractionState = "selected"
	StateRotating InteractionState = "rotating"
	StateScaling  InteractionState = "scaling"

	// StateMenu is reserved for radial menu interactions. No gesture
	// currently transitions into it.
	StateMenu InteractionState = "menu"
)

// Mutating reports whether a hand in this state holds an object lock
// and mutates the object every tick.
func (s InteractionState) Mutating() bool {
	switch s {
	case StateDragging, StateRotating, StateScaling:
		return true

	default:
		return false
	}
}

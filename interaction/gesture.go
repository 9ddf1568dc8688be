// Package interaction runs the per-hand state machine that turns
// tracked hands and gestures into object manipulation on the table
// surface.
package interaction

import "github.com/aukilabs/tafl/models"

// CoalesceGesture folds the recognizer's full vocabulary onto the two
// symbols the stable interaction mode runs on: closed_fist to grab,
// open_palm to release. Gestures that are easily confused with a
// transition between the two keep the previous symbol so recognizer
// flicker does not drop a grabbed object.
func CoalesceGesture(gesture, previous models.Gesture) models.Gesture {
	switch gesture {
	case models.GestureClosedFist,
		models.GesturePinch,
		models.GestureGrab,
		models.GestureThumbsUp,
		models.GestureThumbsDown:
		return models.GestureClosedFist

	case models.GestureOpenPalm,
		models.GestureFour,
		models.GestureThree,
		models.GestureOKSign,
		models.GesturePeaceSign,
		models.GestureLove,
		models.GestureRock,
		models.GestureCallMe,
		models.GestureSpiderman:
		return models.GestureOpenPalm

	default:
		// pointing, gun, unknown and anything the recognizer grows
		// later.
		return previous
	}
}

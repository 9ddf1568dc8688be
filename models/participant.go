package models

import "github.com/aukilabs/tafl/messages"

// A session participant. Sensors and viewers are both participants,
// the difference is only in what they send.
type Participant struct {
	ID        uint32
	ClientID  string
	Responder messages.ResponseSender
}

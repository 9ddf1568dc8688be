package messages

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Error types attached to errors flowing through message handling.
const (
	ErrTypeMsgSkip          = "msg_skip"
	ErrTypeSessionNotJoined = "session_not_joined"
)

// ErrModuleMsgSkip is returned by a module that does not handle a given
// message, letting the dispatch move on to the next module.
var ErrModuleMsgSkip = errors.New("module message skipped").WithType(ErrTypeMsgSkip)

// TypedMsg is implemented by every protocol message struct.
type TypedMsg interface {
	MsgType() Type
}

// Msg is a protocol message in envelope form: its type plus the raw
// JSON document it was parsed from.
type Msg struct {
	Type Type
	Data []byte

	// Time the message entered or left the process, used for latency
	// measurements.
	Time time.Time
}

// DataTo unmarshals the message document into the given value.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message failed").
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// MsgFrom wraps a protocol message into its envelope form.
func MsgFrom(v TypedMsg) (Msg, error) {
	if v.MsgType() == "" {
		return Msg{}, errors.New("message has an empty type")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message failed").
			WithTag("msg_type", v.MsgType()).
			Wrap(err)
	}

	return Msg{
		Type: v.MsgType(),
		Data: data,
		Time: time.Now(),
	}, nil
}

// Receiver receives the next message from a connection, returning the
// message and its size on the wire.
type Receiver func() (Msg, int, error)

// Sender sends a message over a connection, returning its size on the
// wire.
type Sender func(Msg) (int, error)

// ResponseSender sends messages back to the connected client from
// within a handler.
type ResponseSender interface {
	Send(TypedMsg)
	SendMsg(Msg)
}

// Receive reads a single protocol message from the connection. Both
// text and binary WebSocket frames are accepted, the payload must be a
// JSON document with a "type" field.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var data []byte
	if err := websocket.Message.Receive(conn, &data); err != nil {
		return Msg{}, 0, err
	}

	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Msg{}, len(data), errors.New("decoding message envelope failed").Wrap(err)
	}

	return Msg{
		Type: envelope.Type,
		Data: data,
		Time: time.Now(),
	}, len(data), nil
}

// Send writes a single protocol message to the connection as a text
// frame.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	if err := websocket.Message.Send(conn, string(msg.Data)); err != nil {
		return 0, err
	}
	return len(msg.Data), nil
}

// NewReceiver returns a Receiver bound to the given connection.
func NewReceiver(conn *websocket.Conn) Receiver {
	return func() (Msg, int, error) {
		return Receive(conn)
	}
}

// NewSender returns a Sender bound to the given connection.
func NewSender(conn *websocket.Conn) Sender {
	return func(msg Msg) (int, error) {
		return Send(conn, msg)
	}
}

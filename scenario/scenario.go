// Package scenario scripts WebSocket exchanges against a tafl server,
// mainly for tests and smoke probes. A scenario is an ordered list of
// send and receive steps that runs against a live connection.
package scenario

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/messages"
	"golang.org/x/net/websocket"
)

// ErrScenarioMsgSkip is returned by a receive handler to reject the
// current message and keep waiting for the next one.
var ErrScenarioMsgSkip = errors.New("scenario message skipped").
	WithType(messages.ErrTypeMsgSkip)

// Scenario is an ordered sequence of send and receive steps bound to a
// WebSocket connection.
type Scenario struct {
	conn  *websocket.Conn
	steps []func(context.Context) error
}

func NewScenario(conn *websocket.Conn) *Scenario {
	return &Scenario{conn: conn}
}

// Send appends a step that sends the message built by the given
// function.
func (s *Scenario) Send(msg func() messages.TypedMsg) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		m, err := messages.MsgFrom(msg())
		if err != nil {
			return errors.New("building scenario message failed").Wrap(err)
		}

		if _, err := messages.Send(s.conn, m); err != nil {
			return errors.New("sending scenario message failed").
				WithTag("msg_type", m.Type).
				Wrap(err)
		}
		return nil
	})
	return s
}

// Receive appends a step that waits for a message accepted by every
// given handler. A handler returning ErrScenarioMsgSkip rejects the
// current message and the step moves on to the next incoming one. Any
// other handler error aborts the run.
func (s *Scenario) Receive(handlers ...func(messages.Msg) error) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			msg, _, err := s.receive()
			if err != nil {
				return errors.New("receiving scenario message failed").Wrap(err)
			}

			accepted := true
			for _, handle := range handlers {
				err := handle(msg)
				if errors.IsType(err, messages.ErrTypeMsgSkip) {
					accepted = false
					break
				}
				if err != nil {
					return err
				}
			}
			if accepted {
				return nil
			}
		}
	})
	return s
}

// Run executes the scripted steps in order. The context deadline, when
// set, doubles as the connection read deadline so a missing message
// fails the run instead of blocking it forever.
func (s *Scenario) Run(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return errors.New("setting scenario read deadline failed").Wrap(err)
		}
		defer s.conn.SetReadDeadline(time.Time{})
	}

	for _, step := range s.steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) receive() (messages.Msg, int, error) {
	return messages.Receive(s.conn)
}

// FilterByType rejects messages that are not of the given type.
func FilterByType(t messages.Type) func(messages.Msg) error {
	return func(msg messages.Msg) error {
		if msg.Type != t {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}

// FilterByRequestID rejects messages that do not answer the given
// request id.
func FilterByRequestID(id uint32) func(messages.Msg) error {
	return func(msg messages.Msg) error {
		var probe struct {
			RequestID uint32 `json:"request_id"`
		}
		if err := msg.DataTo(&probe); err != nil {
			return err
		}
		if probe.RequestID != id {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}

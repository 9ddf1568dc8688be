package websocket

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/messages"
)

const schedulerChanSize = 512

// Dispatcher routes received messages toward the handling loop.
type Dispatcher interface {
	// Dispatch routes one received message.
	Dispatch(ctx context.Context, msg messages.Msg) error

	// HandleFrame releases the pending frame message, if any, into the
	// consumer channel. It is meant to be registered with the session
	// frame ticker.
	HandleFrame()
}

// Consumer exposes the messages released by a Dispatcher.
type Consumer interface {
	Messages() <-chan messages.Msg
}

// Scheduler aligns sensor frames with the session frame ticker. Control
// messages pass through immediately. A frame message is held until the
// next frame tick, and a newer frame supersedes an unconsumed older
// one, so a slow consumer always sees the freshest sensor state.
type Scheduler struct {
	// OnFrameDropped is called when a held frame is superseded or
	// discarded before delivery. Optional.
	OnFrameDropped func()

	messages chan messages.Msg

	mutex        sync.Mutex
	pendingFrame *messages.Msg

	closeOnce sync.Once
	closed    chan struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		messages: make(chan messages.Msg, schedulerChanSize),
		closed:   make(chan struct{}),
	}
}

func (s *Scheduler) Dispatch(ctx context.Context, msg messages.Msg) error {
	if msg.Type == messages.TypeFrame {
		s.mutex.Lock()
		superseded := s.pendingFrame != nil
		frame := msg
		s.pendingFrame = &frame
		s.mutex.Unlock()

		if superseded {
			s.dropFrame()
		}
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-s.closed:
		return errors.New("scheduler is closed").
			WithTag("msg_type", msg.Type)

	case s.messages <- msg:
		return nil
	}
}

// HandleFrame runs on the session frame dispatch goroutine, which is
// shared by every participant of the session. It must not block: when
// the consumer channel is full the frame is dropped instead.
func (s *Scheduler) HandleFrame() {
	s.mutex.Lock()
	frame := s.pendingFrame
	s.pendingFrame = nil
	s.mutex.Unlock()

	if frame == nil {
		return
	}

	select {
	case <-s.closed:

	case s.messages <- *frame:

	default:
		s.dropFrame()
	}
}

func (s *Scheduler) Messages() <-chan messages.Msg {
	return s.messages
}

func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Scheduler) dropFrame() {
	instrumentFrameSuperseded()
	if s.OnFrameDropped != nil {
		s.OnFrameDropped()
	}
}

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	taflhttp "github.com/aukilabs/tafl/http"
	"github.com/aukilabs/tafl/interaction"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/modules"
	"github.com/aukilabs/tafl/stats"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Creates a testing environement to unit test handlers and modules.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	clientA, clientB, close := newTestingEnv(t, newHandler)
	return clientA, clientB, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, *websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	newConn := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		if err != nil {
			t.Fatalf("error initializing web socket: %s", err)
		}

		config.Header.Set("User-Agent", "ted")
		config.Header.Set("X-Forwarded-for", "192.0.0.0")
		config.Header.Set(taflhttp.HeaderClientID, uuid.NewString())

		conn, err := websocket.DialConfig(config)
		if err != nil {
			t.Fatalf("error dialing web socket: %s", err)
		}

		return conn
	}

	clientA := newConn()
	clientB := newConn()

	return clientA, clientB, func() {
		clientA.Close()
		clientB.Close()
		server.Close()
	}
}

type testClient struct{}

func (s testClient) ServerID() string {
	return "ted"
}

// TestResponseSender collects the messages a handler sends, letting a
// test assert on them without a live connection.
type TestResponseSender struct {
	mutex sync.Mutex
	msgs  []messages.Msg
}

func (s *TestResponseSender) Send(v messages.TypedMsg) {
	msg, err := messages.MsgFrom(v)
	if err != nil {
		panic(err)
	}
	s.SendMsg(msg)
}

func (s *TestResponseSender) SendMsg(msg messages.Msg) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.msgs = append(s.msgs, msg)
}

// Msgs returns the collected messages in send order.
func (s *TestResponseSender) Msgs() []messages.Msg {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]messages.Msg(nil), s.msgs...)
}

func newTestHandler(newModule ...func() modules.Module) func() Handler {
	sessionStore := &models.SessionStore{
		DiscoveryService: &testClient{},
	}
	tracker := stats.NewTracker()
	return func() Handler {

		modules := make([]modules.Module, len(newModule))
		for i, nm := range newModule {
			modules[i] = nm()
		}
		var h Handler = &RealtimeHandler{
			ClientSyncClockInterval: time.Millisecond * 250,
			ClientIdleTimeout:       time.Minute,
			FrameDuration:           time.Millisecond * 50,
			Sessions:                sessionStore,
			Modules:                 modules,
			EngineConfig: interaction.Config{
				CoalesceGestures: true,
				ScaleByDepth:     true,
			},
			Stats:         tracker,
			ServerVersion: "0.0.0-test",
			PointBudget:   5000,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://tafl-test.com")
		return h
	}
}

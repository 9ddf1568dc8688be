// Package smoketest probes a running server over its public protocol:
// join a session, stream one frame, expect the committed state back.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	taflhttp "github.com/aukilabs/tafl/http"
	"github.com/aukilabs/tafl/messages"
	"github.com/aukilabs/tafl/pointcloud"
	"github.com/aukilabs/tafl/scenario"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// DefaultTimeout bounds a probe when the request does not set one.
const DefaultTimeout = 10 * time.Second

// SmokeTestRequest asks a server to probe the given endpoint, or itself
// when the endpoint is empty.
type SmokeTestRequest struct {
	Endpoint string        `json:"endpoint"`
	Token    string        `json:"token"`
	Timeout  time.Duration `json:"timeout"`
}

type SmokeTestResults struct {
	FromEndpoint string        `json:"from_endpoint"`
	ToEndpoint   string        `json:"to_endpoint"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

type Options struct {
	Endpoint   string
	UserAgent  string
	SendResult func(context.Context, SmokeTestResults) error
}

type testCtxKey string

var testCtxKeyValue testCtxKey = "test-context"

type testContext struct {
	context.Context
	Cancel func()
}

// HandleSmokeTest accepts a probe request and runs it in the
// background, reporting the outcome through opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			taflhttp.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req SmokeTestRequest
		if err := json.Unmarshal(b, &req); err != nil {
			taflhttp.BadRequest(w, errors.New("decoding smoke test request failed").Wrap(err))
			return
		}

		endpoint := req.Endpoint
		if endpoint == "" {
			endpoint = opts.Endpoint
		}

		go func() {
			defer func() {
				// A test context carries a cancel func so tests can wait
				// for this goroutine.
				if tctx := ctx.Value(testCtxKeyValue); tctx != nil {
					testCtx := tctx.(testContext)
					if testCtx.Cancel != nil {
						testCtx.Cancel()
					}
				}
			}()

			res, err := RunSmokeTest(ctx, RunSmokeTestOptions{
				FromEndpoint:    opts.Endpoint,
				ToEndpoint:      endpoint,
				ToEndpointToken: req.Token,
				UserAgent:       opts.UserAgent,
				Timeout:         req.Timeout,
			})
			if err != nil {
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

type RunSmokeTestOptions struct {
	FromEndpoint    string
	ToEndpoint      string
	ToEndpointToken string
	UserAgent       string
	Timeout         time.Duration
}

// RunSmokeTest dials the endpoint, joins a fresh session, uploads a
// two point frame and waits for the resulting state update.
func RunSmokeTest(ctx context.Context, opts RunSmokeTestOptions) (SmokeTestResults, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	res := SmokeTestResults{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
	}

	start := time.Now()
	err := probe(ctx, opts)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	res.Success = true
	return res, nil
}

func probe(ctx context.Context, opts RunSmokeTestOptions) error {
	config, err := websocket.NewConfig(wsEndpoint(opts.ToEndpoint), "http://localhost")
	if err != nil {
		return errors.New("creating websocket config failed").
			WithTag("endpoint", opts.ToEndpoint).
			Wrap(err)
	}
	config.Header = make(http.Header)
	config.Header.Set("User-Agent", opts.UserAgent)
	config.Header.Set(taflhttp.HeaderClientID, uuid.NewString())
	if opts.ToEndpointToken != "" {
		config.Header.Set("Authorization", "Bearer "+opts.ToEndpointToken)
	}

	conn, err := websocket.DialConfig(config)
	if err != nil {
		return errors.New("dialing failed").
			WithTag("endpoint", opts.ToEndpoint).
			Wrap(err)
	}
	defer conn.Close()

	payload, err := pointcloud.Encode(pointcloud.Frame{
		Points: []pointcloud.Point{
			{X: 0.25, Y: 0.25, Z: 0.6},
			{X: 0.75, Y: 0.75, Z: 0.8},
		},
	}, pointcloud.EncodeOptions{})
	if err != nil {
		return errors.New("encoding probe point cloud failed").Wrap(err)
	}

	return scenario.NewScenario(conn).
		Send(func() messages.TypedMsg {
			return &messages.ParticipantJoinRequest{
				Type:      messages.TypeParticipantJoinRequest,
				Timestamp: time.Now(),
				RequestID: 1,
			}
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.TypeParticipantJoinResponse),
		).
		Send(func() messages.TypedMsg {
			return &messages.Frame{
				Type:        messages.TypeFrame,
				Timestamp:   time.Now(),
				FrameNumber: 1,
				PointCloud: &messages.PointCloud{
					Data:      payload,
					NumPoints: 2,
				},
			}
		}).
		Receive(
			scenario.FilterByType(messages.TypeStateUpdate),
			func(msg messages.Msg) error {
				var res messages.StateUpdate
				if err := msg.DataTo(&res); err != nil {
					return err
				}
				if res.PointCloud == nil || res.PointCloud.NumPoints == 0 {
					return errors.New("state update came back without the probe point cloud")
				}
				return nil
			},
		).
		Run(ctx)
}

func wsEndpoint(endpoint string) string {
	endpoint = strings.ReplaceAll(endpoint, "https://", "wss://")
	return strings.ReplaceAll(endpoint, "http://", "ws://")
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/tafl/featureflag"
	taflhttp "github.com/aukilabs/tafl/http"
	"github.com/aukilabs/tafl/interaction"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/modules"
	"github.com/aukilabs/tafl/modules/hnefi"
	"github.com/aukilabs/tafl/modules/straumr"
	"github.com/aukilabs/tafl/pointcloud"
	"github.com/aukilabs/tafl/smoketest"
	"github.com/aukilabs/tafl/stats"
	twebsocket "github.com/aukilabs/tafl/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The tafl version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "tafl_info",
		Help:        "Tafl information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"TAFL_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"TAFL_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"TAFL_PUBLIC_ENDPOINT"      help:"The public endpoint where this tafl server is reachable."`
	AuthSecret         string        `cli:""        env:"TAFL_AUTH_SECRET"          help:"The shared secret clients present as a bearer token. Empty disables authentication."`
	AuthSecretFile     string        `cli:""        env:"TAFL_AUTH_SECRET_FILE"     help:"The file that contains the shared secret clients present as a bearer token."`
	ServerID           string        `cli:""        env:"TAFL_SERVER_ID"            help:"The server identifier that prefixes global session ids."`
	LogLevel           string        `cli:""        env:"TAFL_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"TAFL_LOG_INDENT"           help:"Indent logs."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"TAFL_SYNC_CLOCK_INTERVAL"  help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"TAFL_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	FrameDuration      time.Duration `cli:",hidden" env:"TAFL_FRAME_DURATION"       help:"The duration of a session frame."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"TAFL_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	PointBudget        int           `cli:",hidden" env:"TAFL_POINT_BUDGET"         help:"The maximum number of points a broadcast state update carries."`
	Downsample         int           `cli:",hidden" env:"TAFL_DOWNSAMPLE"           help:"The initial point cloud downsample factor of new sessions."`
	CompressionLevel   int           `cli:",hidden" env:"TAFL_COMPRESSION_LEVEL"    help:"The zlib level for broadcast point clouds."`
	HandTimeoutTicks   int           `cli:",hidden" env:"TAFL_HAND_TIMEOUT_TICKS"   help:"The number of ticks a hand may vanish before its state resets."`
	EventLogCapacity   int           `cli:",hidden" env:"TAFL_EVENT_LOG_CAPACITY"   help:"The number of interaction events a session keeps."`
	Events             eventsConfig  `cli:",hidden" env:"-"                         help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"TAFL_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                         help:"Show version."`
	Help               bool          `cli:""        env:"-"                         help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"TAFL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"TAFL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"TAFL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"TAFL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":8765",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:8765",
		ServerID:           "local",
		LogLevel:           logs.InfoLevel.String(),
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		FrameDuration:      time.Millisecond * 33,
		LogSummaryInterval: time.Minute,
		PointBudget:        50000,
		Downsample:         straumr.MinDownsample,
		CompressionLevel:   pointcloud.DefaultCompressionLevel,
		HandTimeoutTicks:   interaction.DefaultHandTimeoutTicks,
		EventLogCapacity:   models.DefaultEventLogCapacity,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a tafl server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	authSecret, err := loadAuthSecret(conf)
	if err != nil {
		logs.Fatal(errors.New("error loading auth secret").Wrap(err))
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "tafl",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	straumr.DefaultDownsample = conf.Downsample

	sessions := models.SessionStore{
		DiscoveryService: models.StaticDiscoveryService{ID: conf.ServerID},
	}
	tracker := stats.NewTracker()
	flags := featureflag.New(conf.FeatureFlags)

	var service http.ServeMux

	service.Handle("/health", taflhttp.HandleWithCORS(http.HandlerFunc(taflhttp.HandleHealthCheck)))
	service.Handle("/version", taflhttp.HandleWithCORS(http.HandlerFunc(taflhttp.HandleVersion(version))))

	service.HandleFunc("/smoke-test", taflhttp.VerifyAuthSecretHandler(authSecret, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("tafl %s", version),
		SendResult: func(ctx context.Context, res smoketest.SmokeTestResults) error {
			logs.WithTag("from_endpoint", res.FromEndpoint).
				WithTag("to_endpoint", res.ToEndpoint).
				WithTag("success", res.Success).
				WithTag("duration", res.Duration.String()).
				Info("smoke test completed")
			return nil
		},
	})))

	// Readiness has no registration to wait on. The server is ready once
	// it listens.
	readinessCheck := func() bool { return true }
	service.Handle("/ready", taflhttp.HandleWithCORS(http.HandlerFunc(taflhttp.HandleReadyCheck(readinessCheck))))

	service.Handle("/", taflhttp.HandleWithCORS(websocket.Server{
		Handshake: taflhttp.VerifyAuthSecret(authSecret),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh twebsocket.Handler = &twebsocket.RealtimeHandler{
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				FrameDuration:           conf.FrameDuration,
				Sessions:                &sessions,
				Modules: []modules.Module{
					&hnefi.Module{},
					&straumr.Module{},
				},
				FeatureFlags: flags,
				EngineConfig: interaction.Config{
					HandTimeoutTicks: conf.HandTimeoutTicks,
					EventLogCapacity: conf.EventLogCapacity,
					CoalesceGestures: !flags.IsSet(featureflag.FlagDisableGestureCoalescing),
					ScaleByDepth:     !flags.IsSet(featureflag.FlagDisableScaleByDepth),
				},
				Stats:            tracker,
				ServerVersion:    version,
				PointBudget:      conf.PointBudget,
				CompressionLevel: conf.CompressionLevel,
			}
			h := twebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = twebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			twebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", taflhttp.HandleHealthCheck)
	admin.HandleFunc("/version", taflhttp.HandleVersion(version))
	admin.Handle("/stats", taflhttp.HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(twebsocket.ServerStats(tracker, &sessions))
		if err != nil {
			taflhttp.InternalServerError(w, errors.New("encoding server stats failed").Wrap(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", taflhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("server_id", conf.ServerID).
		Info("starting tafl server")

	taflhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			taflhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func loadAuthSecret(conf config) (string, error) {
	secret := conf.AuthSecret

	if len(conf.AuthSecretFile) != 0 {
		b, err := os.ReadFile(conf.AuthSecretFile)
		if err != nil {
			return "", errors.New("error loading auth secret from file").
				WithTag("file_name", conf.AuthSecretFile).
				Wrap(err)
		}
		secret = string(b)
	}

	return strings.TrimSpace(secret), nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if len(conf.AuthSecret) != 0 &&
		len(conf.AuthSecretFile) != 0 {
		return errors.New("have to specify either auth secret or auth secret file, not both")
	}

	return nil
}

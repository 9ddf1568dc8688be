package interaction

import (
	"time"

	"github.com/aukilabs/tafl/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const eventTypeLabel = "event_type"

var (
	interactionTickLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "interaction_tick_latency",
		Help: "The time to advance one interaction tick.",
	})

	interactionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interaction_events",
		Help: "The number of interaction events emitted.",
	}, []string{
		eventTypeLabel,
	})

	interactionStaleFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interaction_stale_frames",
		Help: "The number of frames dropped for arriving out of order.",
	})

	interactionHandTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interaction_hand_timeouts",
		Help: "The number of hands reset after going unobserved.",
	})

	interactionLockDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interaction_lock_denials",
		Help: "The number of lock acquisitions denied by arbitration.",
	})
)

func instrumentTick(start time.Time) {
	interactionTickLatency.Observe(time.Since(start).Seconds())
}

func instrumentEvent(t models.EventType) {
	interactionEvents.
		With(prometheus.Labels{eventTypeLabel: string(t)}).
		Inc()
}

func instrumentStaleFrame() {
	interactionStaleFrames.Inc()
}

func instrumentHandTimeout() {
	interactionHandTimeouts.Inc()
}

func instrumentLockDenial() {
	interactionLockDenials.Inc()
}

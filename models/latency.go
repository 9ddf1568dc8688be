package models

import (
	"sort"
	"sync"
	"time"
)

// DefaultLatencyWindow is how many samples a LatencyTracker keeps. Old
// samples fall off so the numbers track the current link, not the whole
// connection history.
const DefaultLatencyWindow = 256

// LatencyMetrics summarizes the one-way delivery delay observed over
// the sample window.
type LatencyMetrics struct {
	Min     time.Duration
	Max     time.Duration
	Mean    time.Duration
	P95     time.Duration
	Samples int
}

// LatencyTracker accumulates one-way latency samples in a fixed ring.
// Samples come from subtracting a message timestamp from the receive
// time, so clock skew can make them negative. Negative samples are
// clamped to zero rather than dropped, to keep the sample count honest.
type LatencyTracker struct {
	mutex   sync.Mutex
	samples []time.Duration
	head    int
	size    int
	total   uint64
}

func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &LatencyTracker{samples: make([]time.Duration, window)}
}

func (t *LatencyTracker) Add(sample time.Duration) {
	if sample < 0 {
		sample = 0
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.samples[t.head] = sample
	t.head = (t.head + 1) % len(t.samples)
	if t.size < len(t.samples) {
		t.size++
	}
	t.total++
}

// Total returns how many samples were ever added, including the ones
// that already fell off the window.
func (t *LatencyTracker) Total() uint64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.total
}

// Metrics computes min/max/mean/p95 over the current window. It returns
// zero metrics when no sample was added yet.
func (t *LatencyTracker) Metrics() LatencyMetrics {
	t.mutex.Lock()
	latencies := make([]time.Duration, t.size)
	copy(latencies, t.samples[:t.size])
	t.mutex.Unlock()

	if len(latencies) == 0 {
		return LatencyMetrics{}
	}

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var total time.Duration
	for _, l := range latencies {
		total += l
	}

	var p95 time.Duration
	index := int(float64(len(latencies)) * 0.95)
	if index < len(latencies) && index > 0 {
		p95 = latencies[index-1]
	}

	return LatencyMetrics{
		Min:     latencies[0],
		Max:     latencies[len(latencies)-1],
		Mean:    total / time.Duration(len(latencies)),
		P95:     p95,
		Samples: len(latencies),
	}
}

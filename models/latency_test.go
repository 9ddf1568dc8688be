package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(8)

	metrics := tracker.Metrics()
	require.Zero(t, metrics.Samples)
	require.Zero(t, metrics.Min)
	require.Zero(t, metrics.Max)
	require.Zero(t, metrics.Mean)
	require.Zero(t, metrics.P95)
}

func TestLatencyTrackerMetrics(t *testing.T) {
	tracker := NewLatencyTracker(8)

	tracker.Add(time.Millisecond * 10)
	tracker.Add(time.Millisecond * 20)
	tracker.Add(time.Millisecond * 30)
	tracker.Add(time.Millisecond * 40)

	metrics := tracker.Metrics()
	require.Equal(t, 4, metrics.Samples)
	require.Equal(t, time.Millisecond*10, metrics.Min)
	require.Equal(t, time.Millisecond*40, metrics.Max)
	require.Equal(t, time.Millisecond*25, metrics.Mean)
	require.Equal(t, time.Millisecond*30, metrics.P95)
	require.Equal(t, uint64(4), tracker.Total())
}

func TestLatencyTrackerClampsNegativeSamples(t *testing.T) {
	tracker := NewLatencyTracker(8)

	tracker.Add(-time.Millisecond * 5)
	tracker.Add(time.Millisecond * 10)

	metrics := tracker.Metrics()
	require.Equal(t, 2, metrics.Samples)
	require.Zero(t, metrics.Min)
	require.Equal(t, time.Millisecond*10, metrics.Max)
}

func TestLatencyTrackerWindowEviction(t *testing.T) {
	tracker := NewLatencyTracker(4)

	for i := 1; i <= 10; i++ {
		tracker.Add(time.Millisecond * time.Duration(i))
	}

	metrics := tracker.Metrics()
	require.Equal(t, 4, metrics.Samples)

	// Only the last four samples remain.
	require.Equal(t, time.Millisecond*7, metrics.Min)
	require.Equal(t, time.Millisecond*10, metrics.Max)
	require.Equal(t, uint64(10), tracker.Total())
}

func TestLatencyTrackerDefaultWindow(t *testing.T) {
	tracker := NewLatencyTracker(0)
	require.Len(t, tracker.samples, DefaultLatencyWindow)
}

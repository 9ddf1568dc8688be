package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taflSessionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_count",
		Help: "The number of sessions.",
	})

	taflSessionCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_count_total",
		Help: "The total number of sessions.",
	})

	taflObjectCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "object_count",
		Help: "The number of interactive objects.",
	})

	taflObjectLockCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "object_lock_count",
		Help: "The number of objects currently locked by a hand.",
	})

	taflObjectStaleReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "object_stale_references_total",
		Help: "The total number of operations that targeted a removed object.",
	})
)

func instrumentIncreaseSessionGauge() {
	taflSessionCount.Inc()
}

func instrumentDecreaseSessionGauge() {
	taflSessionCount.Dec()
}

func instrumentCountSession() {
	taflSessionCountTotal.Inc()
}

func instrumentObjectGauge(delta int) {
	taflObjectCount.Add(float64(delta))
}

func instrumentLockGauge(delta int) {
	taflObjectLockCount.Add(float64(delta))
}

func instrumentStaleReference() {
	taflObjectStaleReferences.Inc()
}

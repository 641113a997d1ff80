package ffibridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	boundaryCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "preflight",
		Subsystem: "bridge",
		Name:      "calls_total",
		Help:      "Boundary calls by operation and outcome.",
	}, []string{"op", "outcome"})

	liveResultGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "preflight",
		Subsystem: "bridge",
		Name:      "live_results",
		Help:      "Result records allocated and not yet released.",
	})
)

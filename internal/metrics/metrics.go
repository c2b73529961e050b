package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker-level counters. Registered on the default registry and exposed on
// /metrics by the API server.
var (
	FramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "frames_captured_total",
		Help:      "Frames successfully decoded per channel.",
	}, []string{"camera_id"})

	FramesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "frames_detected_total",
		Help:      "Frames sent through the detection pipeline per channel.",
	}, []string{"camera_id"})

	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "stream_reconnects_total",
		Help:      "Reconnection attempts per channel.",
	}, []string{"camera_id"})

	DiscoverySuccesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "discovery_successes_total",
		Help:      "Successful URL discoveries by vendor scheme.",
	}, []string{"brand"})

	DiscoveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "discovery_failures_total",
		Help:      "Discovery runs that exhausted the candidate ladder.",
	})

	DetectorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "detector_failures_total",
		Help:      "Detector calls that failed and degraded to zero detections.",
	})

	ViolationsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "violations_opened_total",
		Help:      "Violation events opened by type.",
	}, []string{"violation_type"})

	ViolationsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "violations_closed_total",
		Help:      "Violation events closed by type.",
	}, []string{"violation_type"})

	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safesite",
		Name:      "snapshot_failures_total",
		Help:      "Evidence snapshot captures that failed.",
	})

	ActiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "safesite",
		Name:      "active_channels",
		Help:      "Channels with a running capture loop.",
	})
)

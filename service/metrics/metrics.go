package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Frame metrics
	FramesDiscoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handpose_frames_discovered_total",
		Help: "Frames enqueued, by source (scan or watch)",
	}, []string{"source"})

	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handpose_frames_processed_total",
		Help: "Frames whose artifact was written and raw file removed",
	})

	FramesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handpose_frames_failed_total",
		Help: "Frames that failed, by processing step",
	}, []string{"step"})

	FramesWithoutHandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handpose_frames_without_hands_total",
		Help: "Processed frames where no hand was detected",
	})

	FrameProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handpose_frame_processing_duration_seconds",
		Help:    "Time taken to process a single frame",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	MeasurementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handpose_measurements_total",
		Help: "Landmark rows recorded in the journal",
	})

	// Admission metrics
	AdmissionWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handpose_admission_wait_seconds",
		Help:    "Time a frame waited for its turn at the pose detector",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	StaleFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handpose_stale_frames_total",
		Help: "Frames skipped because their timestamp was not newer than the last detection",
	})

	GapTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handpose_admission_gap_timeouts_total",
		Help: "Frames admitted out of ordinal order after the gap timeout",
	})

	// Worker pool metrics
	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handpose_active_workers",
		Help: "Current number of running workers",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handpose_queue_depth",
		Help: "Frames queued or in progress",
	})
)

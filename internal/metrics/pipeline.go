package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScreenshotUploads counts uploaded artifacts by kind, "original"
	// or "display".
	ScreenshotUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duneatlas",
			Name:      "screenshot_uploads_total",
			Help:      "Screenshot artifacts uploaded, by artifact kind.",
		},
		[]string{"kind"},
	)

	// ConvertedBytes counts the bytes produced by WebP re-encoding.
	ConvertedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duneatlas",
			Name:      "converted_bytes_total",
			Help:      "Bytes of WebP output produced by image conversion.",
		},
	)

	// SweepDeletions counts orphaned blobs removed by the sweeper.
	SweepDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "duneatlas",
			Name:      "sweep_deletions_total",
			Help:      "Orphaned blobs deleted by the reconciliation sweeper.",
		},
	)
)

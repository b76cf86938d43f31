package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusOK                  = "ok"
	StatusExtractionFailed    = "extraction_failed"
	StatusTranscriptionFailed = "transcription_failed"
	StatusStorageFailed       = "storage_failed"
)

// Metrics holds the Prometheus collectors of the logging pipeline.
type Metrics struct {
	// Pipeline
	RequestsTotal    *prometheus.CounterVec
	SegmentsRecorded prometheus.Counter
	AmbiguitiesTotal *prometheus.CounterVec
	OverlapWarnings  *prometheus.CounterVec
	StorageConflicts prometheus.Counter
	TrackedMinutes   prometheus.Counter

	// Oracle calls
	OracleLatencySeconds *prometheus.HistogramVec
}

// DefaultMetrics registers the collectors with the default registry.
func DefaultMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// New registers a fresh set of collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daylog_requests_total",
				Help: "Narrations processed, by input kind and outcome",
			},
			[]string{"input", "status"},
		),
		SegmentsRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "daylog_segments_recorded_total",
				Help: "Segments produced by the segmenter and merged into a timeline",
			},
		),
		AmbiguitiesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daylog_time_ambiguities_total",
				Help: "Time references that fell back to a default, by field",
			},
			[]string{"field"},
		),
		OverlapWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daylog_overlap_warnings_total",
				Help: "Segments truncated or superseded by later narration",
			},
			[]string{"kind"},
		),
		StorageConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "daylog_storage_conflicts_total",
				Help: "Optimistic write conflicts that forced a retry",
			},
		),
		TrackedMinutes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "daylog_tracked_minutes_added_total",
				Help: "Net minutes added to timelines",
			},
		),
		OracleLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "daylog_oracle_latency_seconds",
				Help:    "Latency of extraction and transcription calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

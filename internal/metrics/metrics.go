// Package metrics defines the Prometheus instrumentation for the certificate
// pipeline, exposed by the API server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the certificate pipeline
type Metrics struct {
	// Intake metrics
	UploadsTotal  *prometheus.CounterVec
	UploadBytes   prometheus.Histogram
	DuplicateHits prometheus.Counter

	// Stage metrics
	StageProcessed *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec

	// Quality metrics
	OcrConfidence prometheus.Histogram
	LLMFailures   *prometheus.CounterVec

	// Review metrics
	ReviewDecisions *prometheus.CounterVec
	HoursAwarded    prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificates_uploads_total",
				Help: "Total certificate uploads by outcome",
			},
			[]string{"outcome"}, // outcome: accepted, duplicate, rejected, error
		),

		UploadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "certificates_upload_bytes",
				Help:    "Size distribution of accepted uploads",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
			},
		),

		DuplicateHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "certificates_duplicate_hits_total",
				Help: "Uploads rejected as duplicate content",
			},
		),

		StageProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificates_stage_processed_total",
				Help: "Pipeline messages processed per stage and outcome",
			},
			[]string{"stage", "outcome"}, // stage: ingest, metadata, categorization; outcome: ok, failed, skipped
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "certificates_stage_duration_seconds",
				Help:    "Wall time of one pipeline stage handling one message",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),

		OcrConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "certificates_ocr_confidence",
				Help:    "OCR confidence per processed document, 0-100",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),

		LLMFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificates_llm_failures_total",
				Help: "LLM calls that errored or returned unparseable replies",
			},
			[]string{"operation"}, // operation: extraction, categorization
		),

		ReviewDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certificates_review_decisions_total",
				Help: "Coordinator decisions by kind",
			},
			[]string{"decision"}, // decision: approved, overridden, rejected
		),

		HoursAwarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "certificates_hours_awarded_total",
				Help: "Complementary hours accrued to students through approvals",
			},
		),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

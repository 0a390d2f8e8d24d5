package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/afg1/bqeval/core"
)

const namespace = "bqeval"

// Recorder holds the harness's Prometheus collectors on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searchLatency  *prometheus.HistogramVec
	searchErrors   *prometheus.CounterVec
	cellAccuracy   *prometheus.GaugeVec
	uploadedPoints prometheus.Counter
	failedBatches  prometheus.Counter
	uploadRetries  prometheus.Counter
}

// NewRecorder creates a Recorder with all collectors registered.
// Go runtime and process collectors are included.
func NewRecorder() *Recorder {
	labels := []string{"oversampling", "rescore", "limit"}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Latency of quantized search calls",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, labels),
		searchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_errors_total",
			Help:      "Search calls that returned an error",
		}, labels),
		cellAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cell_accuracy_ratio",
			Help:      "Fraction of queries whose expected text was returned",
		}, labels),
		uploadedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_points_total",
			Help:      "Points acknowledged by the collection",
		}),
		failedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_failed_batches_total",
			Help:      "Upload batches that failed after all retries",
		}),
		uploadRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_retries_total",
			Help:      "Upload attempts that were retried",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.searchLatency,
		r.searchErrors,
		r.cellAccuracy,
		r.uploadedPoints,
		r.failedBatches,
		r.uploadRetries,
	)
	return r
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveSearch records one search call.
func (r *Recorder) ObserveSearch(params core.SearchParams, latency time.Duration, err error) {
	if r == nil {
		return
	}
	lv := labelValues(params)
	if err != nil {
		r.searchErrors.WithLabelValues(lv...).Inc()
		return
	}
	r.searchLatency.WithLabelValues(lv...).Observe(latency.Seconds())
}

// SetAccuracy publishes the accuracy of a finished cell.
func (r *Recorder) SetAccuracy(params core.SearchParams, accuracy float64) {
	if r == nil {
		return
	}
	r.cellAccuracy.WithLabelValues(labelValues(params)...).Set(accuracy)
}

// AddUploaded counts points written to the collection.
func (r *Recorder) AddUploaded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.uploadedPoints.Add(float64(n))
}

// IncFailedBatch counts a batch that could not be uploaded.
func (r *Recorder) IncFailedBatch() {
	if r == nil {
		return
	}
	r.failedBatches.Inc()
}

// IncRetry counts a retried upload attempt.
func (r *Recorder) IncRetry() {
	if r == nil {
		return
	}
	r.uploadRetries.Inc()
}

func labelValues(params core.SearchParams) []string {
	return []string{
		strconv.FormatFloat(params.Oversampling, 'f', -1, 64),
		strconv.FormatBool(params.Rescore),
		strconv.Itoa(params.Limit),
	}
}

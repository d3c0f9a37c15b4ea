package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the visualizer service
type Metrics struct {
	// Analysis metrics
	AnalysisRequests  prometheus.Counter
	AnalysisFailures  *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	UploadSize        prometheus.Histogram
	DroppedLayers     prometheus.Counter
	OrphanedInternals prometheus.Counter

	// Inference metrics
	InferenceRequests  prometheus.Counter
	InferenceSuccesses prometheus.Counter
	InferenceFailures  prometheus.Counter
	InferenceDuration  prometheus.Histogram
	InferenceRetries   prometheus.Counter

	// Render metrics
	TensorsRendered prometheus.Counter
	RenderFailures  *prometheus.CounterVec
	RenderDuration  prometheus.Histogram

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter
	BusyRejections  prometheus.Counter
	StaleSuperseded prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Analysis metrics
		AnalysisRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_analysis_requests_total",
			Help: "Total number of audio analysis requests",
		}),
		AnalysisFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_analysis_failures_total",
			Help: "Total number of failed audio analyses",
		}, []string{"kind"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioviz_analysis_duration_seconds",
			Help:    "End-to-end duration of audio analyses",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioviz_upload_size_bytes",
			Help:    "Size of uploaded audio files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		DroppedLayers: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_dropped_layers_total",
			Help: "Total number of visualization entries dropped for an empty prefix",
		}),
		OrphanedInternals: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_orphaned_internals_total",
			Help: "Total number of internal buckets without a main layer",
		}),

		// Inference metrics
		InferenceRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_inference_requests_total",
			Help: "Total number of inference requests sent",
		}),
		InferenceSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_inference_successes_total",
			Help: "Total number of successful inference requests",
		}),
		InferenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_inference_failures_total",
			Help: "Total number of failed inference requests",
		}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioviz_inference_duration_seconds",
			Help:    "Duration of inference requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		InferenceRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_inference_retries_total",
			Help: "Total number of inference request retries",
		}),

		// Render metrics
		TensorsRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_tensors_rendered_total",
			Help: "Total number of tensors rendered to grids",
		}),
		RenderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_render_failures_total",
			Help: "Total number of tensors that could not be rendered",
		}, []string{"kind"}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioviz_render_duration_seconds",
			Help:    "Time spent rendering all tensors of one response",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		// Session metrics
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioviz_active_sessions",
			Help: "Current number of inspection sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_sessions_expired_total",
			Help: "Total number of sessions removed after inactivity",
		}),
		BusyRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_busy_rejections_total",
			Help: "Total number of uploads rejected while an analysis was in flight",
		}),
		StaleSuperseded: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_stale_results_total",
			Help: "Total number of results discarded because a newer upload superseded them",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audioviz_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordAnalysis records a finished analysis; kind is empty on success
func (m *Metrics) RecordAnalysis(kind string, durationSeconds float64) {
	m.AnalysisRequests.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
	if kind != "" {
		m.AnalysisFailures.WithLabelValues(kind).Inc()
	}
}

// RecordUpload records the size of an uploaded audio file
func (m *Metrics) RecordUpload(sizeBytes int) {
	m.UploadSize.Observe(float64(sizeBytes))
}

// RecordLayerDiagnostics records dropped entries and orphaned internal buckets
func (m *Metrics) RecordLayerDiagnostics(dropped, orphaned int) {
	m.DroppedLayers.Add(float64(dropped))
	m.OrphanedInternals.Add(float64(orphaned))
}

// RecordInferenceRequest increments inference requests counter
func (m *Metrics) RecordInferenceRequest() {
	m.InferenceRequests.Inc()
}

// RecordInferenceSuccess records a successful inference call
func (m *Metrics) RecordInferenceSuccess(durationSeconds float64) {
	m.InferenceSuccesses.Inc()
	m.InferenceDuration.Observe(durationSeconds)
}

// RecordInferenceFailure records a failed inference call
func (m *Metrics) RecordInferenceFailure(durationSeconds float64) {
	m.InferenceFailures.Inc()
	m.InferenceDuration.Observe(durationSeconds)
}

// RecordInferenceRetry increments the retry counter
func (m *Metrics) RecordInferenceRetry() {
	m.InferenceRetries.Inc()
}

// RecordRender records one render batch
func (m *Metrics) RecordRender(rendered int, failureKinds []string, durationSeconds float64) {
	m.TensorsRendered.Add(float64(rendered))
	for _, kind := range failureKinds {
		m.RenderFailures.WithLabelValues(kind).Inc()
	}
	m.RenderDuration.Observe(durationSeconds)
}

// SetActiveSessions sets the current number of sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionExpired increments the sessions expired counter
func (m *Metrics) RecordSessionExpired() {
	m.SessionsExpired.Inc()
}

// RecordBusyRejection increments the busy rejections counter
func (m *Metrics) RecordBusyRejection() {
	m.BusyRejections.Inc()
}

// RecordStaleResult increments the superseded results counter
func (m *Metrics) RecordStaleResult() {
	m.StaleSuperseded.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/skypro1111/audio-cnn-visualizer/internal/analysis"
	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/config"
	"github.com/skypro1111/audio-cnn-visualizer/internal/inference"
	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/session"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

const (
	serviceName    = "audio-cnn-visualizer"
	serviceVersion = "1.0.0"

	// SessionHeader binds an analyze request to a viewer session
	SessionHeader = "X-Session-ID"
	// SupersededHeader marks a result that lost to a newer upload
	SupersededHeader = "X-Superseded"

	maxMultipartMemory = 32 << 20
)

// Error bodies returned to clients
const (
	msgInferenceFailed = "Inference failed"
	msgServerError     = "Server error"
	msgUploadTooLarge  = "Upload too large"
	msgBusy            = "Analysis already in progress"
	msgSessionNotFound = "Session not found"
)

// Forwarder is the inference client as seen by the HTTP layer
type Forwarder interface {
	Forward(ctx context.Context, payload []byte) ([]byte, error)
	GetStats() inference.ClientStats
}

// Deps bundles the components served over HTTP
type Deps struct {
	Analyzer *analysis.Analyzer
	Client   Forwarder
	Sessions *session.Manager
	Scale    scale.Scale
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// HTTPServer provides the visualizer HTTP API
type HTTPServer struct {
	server   *http.Server
	handler  http.Handler
	logger   *slog.Logger
	config   *config.Config
	analyzer *analysis.Analyzer
	client   Forwarder
	sessions *session.Manager
	scale    scale.Scale
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, deps Deps) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		analyzer:  deps.Analyzer,
		client:    deps.Client,
		sessions:  deps.Sessions,
		scale:     deps.Scale,
		metrics:   deps.Metrics,
		gatherer:  deps.Gatherer,
		startTime: time.Now(),
	}

	if h.gatherer == nil {
		h.gatherer = prometheus.DefaultGatherer
	}

	h.handler = otelhttp.NewHandler(h.setupRouter(), serviceName)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      h.handler,
		ReadTimeout:  cfg.HTTP.GetReadTimeoutDuration(),
		WriteTimeout: cfg.HTTP.GetWriteTimeoutDuration(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the root handler, for tests and embedding
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// setupRouter configures middleware and routes
func (h *HTTPServer) setupRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: h.config.HTTP.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", SessionHeader},
			ExposedHeaders: []string{SupersededHeader},
		}),
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		h.logRequests,
		chiMiddleware.Recoverer,
		chiMiddleware.CleanPath,
	)

	router.Get("/", h.withMetrics("/", h.handleRoot))
	router.Get("/health", h.withMetrics("/health", h.handleHealth))
	router.Get("/stats", h.withMetrics("/stats", h.handleStats))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/scale", h.withMetrics("/api/scale", h.handleScale))
		r.Post("/inference", h.withMetrics("/api/inference", h.handleInference))
		r.Post("/analyze", h.withMetrics("/api/analyze", h.handleAnalyze))
		r.Post("/sessions", h.withMetrics("/api/sessions", h.handleCreateSession))
		r.Get("/sessions/{id}", h.withMetrics("/api/sessions/{id}", h.handleGetSession))
		r.Delete("/sessions/{id}", h.withMetrics("/api/sessions/{id}", h.handleDeleteSession))
		r.Post("/sessions/{id}/reset", h.withMetrics("/api/sessions/{id}/reset", h.handleResetSession))
	})

	return router
}

// logRequests logs every served request
func (h *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := time.Now()
		resp := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			h.logger.Debug("HTTP request served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
				slog.Int("status", resp.Status()),
				slog.String("response_size", humanize.Bytes(uint64(resp.BytesWritten()))),
				slog.Duration("duration", time.Since(st)),
			)
		}()

		next.ServeHTTP(resp, r)
	})
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Capture the status code
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// jsonBodyLimit allows for base64 growth of a max-size upload
func (h *HTTPServer) jsonBodyLimit() int64 {
	return h.config.HTTP.MaxUploadBytes/3*4 + 4096
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// handleInference forwards an encoded audio envelope to the inference service
func (h *HTTPServer) handleInference(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.jsonBodyLimit()))
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	if !json.Valid(payload) {
		h.logger.Warn("Inference proxy received invalid JSON")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	body, err := h.client.Forward(r.Context(), payload)
	if err != nil {
		h.logger.Error("Inference proxy failed", slog.String("error", err.Error()))
		if errors.Is(err, inference.ErrUpstreamStatus) {
			writeError(w, http.StatusInternalServerError, msgInferenceFailed)
			return
		}
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	if !json.Valid(body) {
		h.logger.Error("Inference service returned invalid JSON")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// analyzeRequest is the JSON form of an analyze upload
type analyzeRequest struct {
	AudioData string `json:"audio_data"`
	FileName  string `json:"file_name"`
}

// readUpload accepts a multipart "file" field or an analyzeRequest body
func (h *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.HTTP.MaxUploadBytes+64<<10)
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, "", fmt.Errorf("failed to parse multipart form: %w", err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return raw, header.Filename, nil
	}

	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.jsonBodyLimit())).Decode(&req); err != nil {
		return nil, "", fmt.Errorf("invalid JSON body: %w", err)
	}

	raw, err := codec.DecodeAudio(req.AudioData)
	if err != nil {
		return nil, "", err
	}
	return raw, req.FileName, nil
}

// handleAnalyze runs the full pipeline and returns the view
func (h *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	raw, fileName, err := h.readUpload(w, r)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if int64(len(raw)) > h.config.HTTP.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	var ticket session.Ticket
	if sessionID != "" {
		ticket, err = h.sessions.Begin(sessionID, fileName)
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, msgSessionNotFound)
			return
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, msgBusy)
			return
		}
	}

	committed := false
	if sessionID != "" {
		// Release the in-flight guard even if the handler unwinds early
		defer func() {
			if !committed {
				h.sessions.Commit(ticket, nil, errors.New(analysis.UserMessage))
			}
		}()
	}

	v, err := h.runAnalysis(r.Context(), raw, fileName)

	if sessionID != "" {
		var failure error
		if err != nil {
			failure = errors.New(analysis.UserMessage)
		}
		committed = true
		if !h.sessions.Commit(ticket, v, failure) {
			w.Header().Set(SupersededHeader, "true")
		}
	}

	if err != nil {
		writeError(w, http.StatusBadGateway, analysis.UserMessage)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// runAnalysis turns a panic anywhere in the pipeline into an error, so the
// session guard is always released and the reply is the collapsed failure
func (h *HTTPServer) runAnalysis(ctx context.Context, raw []byte, fileName string) (v *view.View, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		v, err = h.analyzer.Analyze(ctx, raw, fileName)
	})
	if rec := catcher.Recovered(); rec != nil {
		h.logger.Error("Analysis panicked",
			slog.String("file_name", fileName),
			slog.String("panic", rec.String()),
		)
		return nil, fmt.Errorf("analysis panicked: %v", rec.Value)
	}
	return v, err
}

// handleScale returns the colour legend shared by every grid
func (h *HTTPServer) handleScale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scale.Legend())
}

func (h *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, s.State())
}

func (h *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleResetSession clears the displayed view; an in-flight result for the
// old generation will be dropped when it arrives
func (h *HTTPServer) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Reset(id); err != nil {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}

	state, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.client.GetStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"inference": map[string]interface{}{
				"endpoint":        stats.Endpoint,
				"total_requests":  stats.TotalRequests,
				"success_rate":    stats.SuccessRate,
				"active_requests": stats.ActiveRequests,
			},
			"sessions": map[string]interface{}{
				"active": h.sessions.Count(),
			},
		},
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"inference": h.client.GetStats(),
		"sessions": map[string]interface{}{
			"active":  h.sessions.Count(),
			"timeout": h.config.Session.GetTimeoutDuration().String(),
		},
		"render": map[string]interface{}{
			"scale_min": h.scale.Min,
			"scale_max": h.scale.Max,
			"max_rows":  h.config.Render.MaxRows,
			"max_cols":  h.config.Render.MaxCols,
			"workers":   h.config.Render.Workers,
		},
		"max_upload": humanize.Bytes(uint64(h.config.HTTP.MaxUploadBytes)),
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":                         "API documentation",
			"GET /health":                   "Service health check",
			"GET /stats":                    "Service statistics",
			"GET /metrics":                  "Prometheus metrics",
			"GET /api/scale":                "Colour scale legend",
			"POST /api/inference":           "Forward an encoded audio envelope to the classifier",
			"POST /api/analyze":             "Analyze an upload and return the view",
			"POST /api/sessions":            "Create a viewer session",
			"GET /api/sessions/{id}":        "Get the displayed state of a session",
			"DELETE /api/sessions/{id}":     "Remove a session",
			"POST /api/sessions/{id}/reset": "Discard the displayed view",
		},
		"timestamp": time.Now().UTC(),
	})
}

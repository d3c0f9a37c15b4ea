package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/skypro1111/audio-cnn-visualizer/internal/audio"
	"github.com/skypro1111/audio-cnn-visualizer/internal/codec"
	"github.com/skypro1111/audio-cnn-visualizer/internal/layers"
	"github.com/skypro1111/audio-cnn-visualizer/internal/metrics"
	"github.com/skypro1111/audio-cnn-visualizer/internal/render"
	"github.com/skypro1111/audio-cnn-visualizer/internal/scale"
	"github.com/skypro1111/audio-cnn-visualizer/internal/view"
)

// Inferrer sends raw audio to the classifier and returns the response body
type Inferrer interface {
	Infer(ctx context.Context, audio []byte) ([]byte, error)
}

// Config controls rendering and composition
type Config struct {
	Scale          scale.Scale
	Render         render.Options
	Workers        int
	TopPredictions int
}

// Analyzer turns uploads into views
type Analyzer struct {
	inferrer Inferrer
	config   Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzer creates an analyzer. m may be nil.
func NewAnalyzer(inferrer Inferrer, config Config, logger *slog.Logger, m *metrics.Metrics) *Analyzer {
	if config.Workers < 1 {
		config.Workers = 1
	}

	return &Analyzer{
		inferrer: inferrer,
		config:   config,
		logger:   logger,
		metrics:  m,
	}
}

// Analyze runs the whole pipeline for one upload. Errors are *Failure.
func (a *Analyzer) Analyze(ctx context.Context, raw []byte, fileName string) (*view.View, error) {
	requestID := uuid.NewString()
	logger := a.logger.With(
		slog.String("request_id", requestID),
		slog.String("file_name", fileName),
	)
	startTime := time.Now()

	a.logUpload(logger, raw)

	v, err := a.analyze(ctx, logger, raw)
	elapsed := time.Since(startTime)

	if err != nil {
		failure := &Failure{Kind: classify(err), Err: err}
		logger.Error("Audio analysis failed",
			slog.String("error_kind", failure.Kind),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		if a.metrics != nil {
			a.metrics.RecordAnalysis(failure.Kind, elapsed.Seconds())
		}
		return nil, failure
	}

	v.RequestID = requestID
	v.FileName = fileName

	logger.Info("Audio analysis completed",
		slog.Int("layers", len(v.Layers)),
		slog.Int("diagnostics", len(v.Diagnostics)),
		slog.Duration("duration", elapsed),
	)
	if a.metrics != nil {
		a.metrics.RecordAnalysis("", elapsed.Seconds())
	}

	return v, nil
}

func (a *Analyzer) analyze(ctx context.Context, logger *slog.Logger, raw []byte) (*view.View, error) {
	body, err := a.inferrer.Infer(ctx, raw)
	if err != nil {
		return nil, err
	}

	resp, err := codec.DecodeResponse(body)
	if err != nil {
		return nil, err
	}

	return a.compose(ctx, logger, resp), nil
}

// Compose renders an already decoded response
func (a *Analyzer) Compose(ctx context.Context, resp *codec.Response) *view.View {
	return a.compose(ctx, a.logger, resp)
}

func (a *Analyzer) compose(ctx context.Context, logger *slog.Logger, resp *codec.Response) *view.View {
	group := layers.Resolve(resp.Visualization)
	layout := view.NewLayout(resp, group)

	renderStart := time.Now()
	batch := render.RenderAll(ctx, layout.Tensors(), a.config.Scale, a.config.Render, a.config.Workers)
	renderTime := time.Since(renderStart)

	failureKinds := make([]string, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		failureKinds = append(failureKinds, f.Kind)
		logger.Warn("Tensor could not be rendered",
			slog.String("layer", f.Name),
			slog.String("error_kind", f.Kind),
			slog.String("error", f.Err.Error()),
		)
	}

	for _, name := range group.Dropped {
		logger.Warn("Dropping layer with empty parent prefix", slog.String("layer", name))
	}

	orphans := group.Orphans()
	for _, parent := range orphans {
		logger.Warn("Internal layers reference a missing main layer",
			slog.String("layer", parent),
			slog.Int("count", len(group.Internals[parent])),
		)
	}

	if a.metrics != nil {
		a.metrics.RecordRender(len(batch.Grids), failureKinds, renderTime.Seconds())
		a.metrics.RecordLayerDiagnostics(len(group.Dropped), len(orphans))
	}

	return layout.Compose(resp, batch, a.config.Scale.Legend(), view.Options{
		TopPredictions: a.config.TopPredictions,
	})
}

func (a *Analyzer) logUpload(logger *slog.Logger, raw []byte) {
	if a.metrics != nil {
		a.metrics.RecordUpload(len(raw))
	}

	info, err := audio.Inspect(raw)
	if err != nil {
		logger.Info("Analyzing upload",
			slog.String("size", humanize.Bytes(uint64(len(raw)))),
			slog.String("wav_error", err.Error()),
		)
		return
	}

	logger.Info("Analyzing upload",
		slog.String("size", humanize.Bytes(uint64(len(raw)))),
		slog.Uint64("sample_rate", uint64(info.SampleRate)),
		slog.Int("channels", int(info.Channels)),
		slog.Float64("duration_seconds", info.Duration),
	)
}

// Package pipeline runs the flowering-risk analysis end to end: load,
// normalize, build features, join climate, train, score, derive monthly
// probabilities and render the map.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/observability"
	"github.com/couchcryptid/florascope-service/internal/render"
	"github.com/couchcryptid/florascope-service/internal/risk"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ObservationSource returns the raw observation document.
type ObservationSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// PredictionSink receives the predictions of every successful run.
type PredictionSink interface {
	PublishPredictions(ctx context.Context, runID string, preds []domain.Prediction) error
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, r domain.RunRecord) error
}

// Options toggles and parameterizes the pipeline stages.
type Options struct {
	// ClimateEnabled joins the climatology fetched with ClimateQuery.
	ClimateEnabled bool
	ClimateQuery   domain.ClimateQuery

	Model risk.Options

	MonthlyEnabled bool
	Strategy       risk.MonthlyStrategy

	// MapPath is where the map is written. Empty disables rendering.
	MapPath string
	MapZoom int
}

// Option configures optional collaborators of a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for run timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithSink publishes every successful run's predictions to s.
func WithSink(s PredictionSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithRecorder records the outcome of every run with r.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// Pipeline executes runs one at a time.
type Pipeline struct {
	source   ObservationSource
	climate  domain.ClimateSource
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	sink     PredictionSink
	recorder RunRecorder

	mu    sync.Mutex
	ready atomic.Bool
	last  atomic.Pointer[Result]
}

// New creates a Pipeline. climate may be nil when the climate stage is disabled.
func New(source ObservationSource, climate domain.ClimateSource, opts Options, logger *slog.Logger, metrics *observability.Metrics, options ...Option) *Pipeline {
	if opts.Strategy == "" {
		opts.Strategy = risk.StrategySeasonal
	}
	p := &Pipeline{
		source:  source,
		climate: climate,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, o := range options {
		o(p)
	}
	if p.climate == nil {
		p.opts.ClimateEnabled = false
	}
	if p.opts.ClimateEnabled {
		p.metrics.ClimateEnabled.Set(1)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no pipeline run has completed yet")
	}
	return nil
}

// Last returns the result of the most recent successful run, or nil.
func (p *Pipeline) Last() *Result {
	return p.last.Load()
}

// MapPath returns the configured map location, empty when rendering is off.
func (p *Pipeline) MapPath() string {
	return p.opts.MapPath
}

// Run executes one complete run. Concurrent calls are serialized. On error
// no partial result is returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := &Result{
		RunID:          uuid.NewString(),
		StartedAt:      p.clock.Now().UTC(),
		ClimateEnabled: p.opts.ClimateEnabled,
		MonthlyEnabled: p.opts.MonthlyEnabled,
		Strategy:       p.opts.Strategy,
	}
	logger := p.logger.With("run_id", res.RunID)
	logger.Info("pipeline run started", "climate", res.ClimateEnabled, "monthly", res.MonthlyEnabled)

	err := p.execute(ctx, res, logger)
	res.Duration = p.clock.Since(res.StartedAt)
	p.metrics.RunDuration.Observe(res.Duration.Seconds())

	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("pipeline run failed", "error", err, "duration", res.Duration)
		p.record(ctx, logger, res.record(err))
		return nil, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.ObservationsProcessed.Add(float64(len(res.Predictions)))
	p.metrics.PredictionsFlagged.Add(float64(res.Flagged()))
	p.metrics.PipelineReady.Set(1)
	p.ready.Store(true)
	p.last.Store(res)

	p.publish(ctx, logger, res)
	p.record(ctx, logger, res.record(nil))

	logger.Info("pipeline run completed",
		"rows", len(res.Predictions),
		"flagged", res.Flagged(),
		"peak_month", res.PeakMonthNumber(),
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, res *Result, logger *slog.Logger) error {
	data, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}

	observations, err := domain.NormalizeDataset(data)
	if err != nil {
		return err
	}
	rows, err := domain.BuildFeatures(observations)
	if err != nil {
		return err
	}
	logger.Debug("features built", "rows", len(rows))

	if p.opts.ClimateEnabled {
		res.Climate, err = p.climate.FetchClimatology(ctx, p.opts.ClimateQuery)
		if err != nil {
			return fmt.Errorf("fetch climatology: %w", err)
		}
		logger.Debug("climatology loaded", "months", len(res.Climate))
	}
	joined, err := domain.JoinClimate(rows, res.Climate)
	if err != nil {
		return err
	}

	modelOpts := p.opts.Model
	modelOpts.UseClimate = p.opts.ClimateEnabled
	model, err := risk.Train(joined, modelOpts, logger)
	if err != nil {
		return err
	}
	res.Evaluation = model.Evaluation()
	res.Predictions = model.PredictAll(joined)

	if p.opts.MonthlyEnabled {
		res.MonthlyProbabilities, err = model.MonthlyProbabilities(p.opts.Strategy, res.Predictions, res.Climate)
		if err != nil {
			return err
		}
		if peak, ok := domain.SelectPeakMonth(res.MonthlyProbabilities); ok {
			res.Peak = &peak
		}
	}

	if p.opts.MapPath != "" {
		if err := render.WriteMap(p.opts.MapPath, render.MapData{
			Predictions: res.Predictions,
			Peak:        res.Peak,
			Zoom:        p.opts.MapZoom,
		}); err != nil {
			return err
		}
		res.MapPath = p.opts.MapPath
	}
	return nil
}

// publish forwards predictions to the sink. Sink failures are logged and
// counted but do not fail the run.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, res *Result) {
	if p.sink == nil {
		return
	}
	if err := p.sink.PublishPredictions(ctx, res.RunID, res.Predictions); err != nil {
		p.metrics.SinkErrors.WithLabelValues("kafka").Inc()
		logger.Warn("publish predictions failed", "error", err)
		return
	}
	p.metrics.PredictionsPublished.Add(float64(len(res.Predictions)))
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, rec domain.RunRecord) {
	if p.recorder == nil {
		return
	}
	// Record even when the request context is gone so failed runs are kept.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.recorder.RecordRun(ctx, rec); err != nil {
		p.metrics.SinkErrors.WithLabelValues("history").Inc()
		logger.Warn("record run failed", "error", err)
	}
}

package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/service"
	"github.com/vzahanych/weather-data-fetcher/internal/weather"
	"github.com/vzahanych/weather-data-fetcher/pkg/telemetry"
)

var ErrRunInProgress = errors.New("fetch run already in progress")

// Store persists one document per file name.
type Store interface {
	Save(name string, payload json.RawMessage) error
}

// MetricsRecorder interface for recording metrics
type MetricsRecorder interface {
	RecordDatasetFetch(ctx context.Context, dataset string, success bool)
	RecordDatasetSave(ctx context.Context, dataset string, success bool)
}

// Runner fetches every dataset for every location, one request at a time.
type Runner struct {
	service   service.DatasetService
	store     Store
	locations []weather.Location
	datasets  []weather.Dataset
	logger    *zap.Logger
	tele      *telemetry.Telemetry
	metrics   MetricsRecorder
	now       func() time.Time

	running sync.Mutex
	lastMu  sync.RWMutex
	last    *Report
}

func NewRunner(svc service.DatasetService, store Store, locations []weather.Location, logger *zap.Logger, tele *telemetry.Telemetry) *Runner {
	return &Runner{
		service:   svc,
		store:     store,
		locations: locations,
		datasets:  weather.Datasets(),
		logger:    logger,
		tele:      tele,
		now:       time.Now,
	}
}

// SetMetricsRecorder sets the metrics recorder for the runner
func (r *Runner) SetMetricsRecorder(metrics MetricsRecorder) {
	r.metrics = metrics
}

func (r *Runner) Locations() []weather.Location {
	return r.locations
}

// LastReport returns the report of the most recent completed run, or nil.
func (r *Runner) LastReport() *Report {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

// Run performs one complete pass. It waits for any run already in progress.
// Individual failures are logged and recorded in the report; they never stop
// the pass.
func (r *Runner) Run(ctx context.Context) *Report {
	r.running.Lock()
	defer r.running.Unlock()
	return r.run(ctx)
}

// TryRun is Run without waiting: it returns ErrRunInProgress when another
// pass holds the runner.
func (r *Runner) TryRun(ctx context.Context) (*Report, error) {
	if !r.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()
	return r.run(ctx), nil
}

func (r *Runner) run(ctx context.Context) *Report {
	tracer := r.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "fetcher.Run")
	defer span.End()

	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: r.now().UTC(),
		Results:   make([]Result, 0, len(r.locations)*len(r.datasets)),
	}
	runLogger := r.logger.With(zap.String("run_id", report.RunID))

	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("locations", len(r.locations)),
	)

	runLogger.Info("Starting data fetch",
		zap.Int("locations", len(r.locations)),
		zap.Int("datasets", len(r.datasets)))

	for _, loc := range r.locations {
		locLogger := runLogger.With(zap.String("location", loc.Key))
		locLogger.Info("Processing location",
			zap.String("name", loc.Name),
			zap.String("coordinates", loc.Coordinates()))

		for _, ds := range r.datasets {
			report.Results = append(report.Results, r.fetchAndSave(ctx, locLogger, loc, ds))
		}
	}

	report.FinishedAt = r.now().UTC()

	span.SetAttributes(
		attribute.Int("succeeded", report.Succeeded()),
		attribute.Int("failed", report.Failed()),
	)

	runLogger.Info("Data fetch completed",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", report.Duration()))

	r.lastMu.Lock()
	r.last = report
	r.lastMu.Unlock()

	return report
}

func (r *Runner) fetchAndSave(ctx context.Context, logger *zap.Logger, loc weather.Location, ds weather.Dataset) Result {
	result := Result{
		Location: loc.Key,
		Dataset:  ds,
		File:     weather.FileName(loc.Key, ds),
	}
	logger = logger.With(zap.String("dataset", string(ds)))

	if err := ctx.Err(); err != nil {
		logger.Warn("Skipping dataset", zap.Error(err))
		result.Status = StatusSkipped
		result.Error = err.Error()
		return result
	}

	data, err := r.service.Fetch(ctx, loc, ds)
	if errors.Is(err, service.ErrDatasetDisabled) {
		logger.Debug("Dataset disabled, skipping")
		result.Status = StatusDisabled
		return result
	}
	r.recordFetch(ctx, ds, err == nil)
	if err != nil {
		logger.Error("Failed to fetch dataset", zap.Error(err))
		result.Status = StatusFetchFailed
		result.Error = err.Error()
		return result
	}
	logger.Info("Dataset fetched", zap.Int("bytes", len(data)))

	err = r.store.Save(result.File, data)
	r.recordSave(ctx, ds, err == nil)
	if err != nil {
		logger.Error("Failed to save dataset", zap.String("file", result.File), zap.Error(err))
		result.Status = StatusSaveFailed
		result.Error = err.Error()
		return result
	}

	logger.Info("Dataset saved", zap.String("file", result.File))
	result.Status = StatusOK
	return result
}

func (r *Runner) recordFetch(ctx context.Context, ds weather.Dataset, success bool) {
	if r.metrics != nil {
		r.metrics.RecordDatasetFetch(ctx, string(ds), success)
	}
}

func (r *Runner) recordSave(ctx context.Context, ds weather.Dataset, success bool) {
	if r.metrics != nil {
		r.metrics.RecordDatasetSave(ctx, string(ds), success)
	}
}

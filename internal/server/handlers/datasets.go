package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/climate"
	"github.com/vzahanych/weather-data-fetcher/internal/fetcher"
	"github.com/vzahanych/weather-data-fetcher/internal/server/utils"
	"github.com/vzahanych/weather-data-fetcher/internal/store"
	"github.com/vzahanych/weather-data-fetcher/internal/weather"
)

// FetchRunner triggers fetch runs and remembers the last one.
type FetchRunner interface {
	TryRun(ctx context.Context) (*fetcher.Report, error)
	LastReport() *fetcher.Report
}

// DocumentStore reads the files written by a fetch run.
type DocumentStore interface {
	Load(name string) (json.RawMessage, error)
	Stat(name string) (store.FileInfo, error)
}

type DatasetHandler struct {
	runner    FetchRunner
	store     DocumentStore
	locations []weather.Location
	logger    *zap.Logger
}

func NewDatasetHandler(runner FetchRunner, docs DocumentStore, locations []weather.Location, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{
		runner:    runner,
		store:     docs,
		locations: locations,
		logger:    logger,
	}
}

// ListLocations reports every configured location and which of its
// datasets are currently on disk.
func (h *DatasetHandler) ListLocations(c *gin.Context) {
	reqLogger := utils.RequestLogger(c, h.logger)

	resp := LocationsResponse{Locations: make([]LocationStatus, 0, len(h.locations))}
	for _, loc := range h.locations {
		status := LocationStatus{Location: loc}

		for _, ds := range weather.Datasets() {
			name := weather.FileName(loc.Key, ds)
			entry := DatasetStatus{Dataset: ds, File: name, URL: "/data/" + name}

			info, err := h.store.Stat(name)
			switch {
			case err == nil:
				entry.Available = true
				entry.Size = info.Size
				updated := info.UpdatedAt
				entry.UpdatedAt = &updated
			case !errors.Is(err, store.ErrNotFound):
				reqLogger.Warn("Failed to stat dataset file", zap.String("file", name), zap.Error(err))
			}

			status.Datasets = append(status.Datasets, entry)
		}

		resp.Locations = append(resp.Locations, status)
	}

	c.JSON(http.StatusOK, resp)
}

// MonthlyAverages serves the monthly mean temperatures derived from the
// location's yearly daily dataset.
func (h *DatasetHandler) MonthlyAverages(c *gin.Context) {
	reqLogger := utils.RequestLogger(c, h.logger)

	var uri LocationURI
	if err := c.ShouldBindUri(&uri); err != nil {
		reqLogger.Warn("Invalid request parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
			Fields:  utils.FormatValidationErrors(err),
		})
		return
	}

	utils.GetSpanFromGinContext(c).SetAttributes(attribute.String("location", uri.Key))

	loc, ok := h.findLocation(uri.Key)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Unknown location",
			Code:  "LOCATION_NOT_FOUND",
		})
		return
	}

	name := weather.FileName(loc.Key, weather.YearlyDaily)
	raw, err := h.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Yearly dataset not available",
			Code:    "DATASET_NOT_FOUND",
			Details: name,
		})
		return
	}
	if err != nil {
		reqLogger.Error("Failed to load dataset", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load dataset",
			Code:  "STORE_ERROR",
		})
		return
	}

	months, err := climate.MonthlyAverages(raw)
	if err != nil {
		reqLogger.Warn("Yearly dataset cannot be aggregated", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Yearly dataset cannot be aggregated",
			Code:    "INVALID_DATASET",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, MonthlyAveragesResponse{
		Location: loc.Key,
		Name:     loc.Name,
		Unit:     climate.Unit(raw),
		Months:   months,
	})
}

// GetDataset returns one stored document as written by the last successful fetch.
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	reqLogger := utils.RequestLogger(c, h.logger)

	var uri DatasetURI
	if err := c.ShouldBindUri(&uri); err != nil {
		reqLogger.Warn("Invalid request parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
			Fields:  utils.FormatValidationErrors(err),
		})
		return
	}

	ds, err := weather.ParseDataset(uri.Dataset)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Unknown dataset",
			Code:    "INVALID_DATASET_NAME",
			Details: err.Error(),
		})
		return
	}

	utils.GetSpanFromGinContext(c).SetAttributes(
		attribute.String("location", uri.Key),
		attribute.String("dataset", string(ds)),
	)

	loc, ok := h.findLocation(uri.Key)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Unknown location",
			Code:  "LOCATION_NOT_FOUND",
		})
		return
	}

	name := weather.FileName(loc.Key, ds)
	raw, err := h.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Dataset not available",
			Code:    "DATASET_NOT_FOUND",
			Details: name,
		})
		return
	}
	if err != nil {
		reqLogger.Error("Failed to load dataset", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load dataset",
			Code:  "STORE_ERROR",
		})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// TriggerFetch runs one fetch pass synchronously and returns its report.
// The pass is not cancelled if the client goes away.
func (h *DatasetHandler) TriggerFetch(c *gin.Context) {
	reqLogger := utils.RequestLogger(c, h.logger)
	ctx := context.WithoutCancel(utils.GetContextFromGinContext(c))

	report, err := h.runner.TryRun(ctx)
	if errors.Is(err, fetcher.ErrRunInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "A fetch run is already in progress",
			Code:  "RUN_IN_PROGRESS",
		})
		return
	}
	if err != nil {
		reqLogger.Error("Fetch run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Fetch run failed",
			Code:    "RUN_ERROR",
			Details: err.Error(),
		})
		return
	}

	reqLogger.Info("Fetch run triggered over HTTP",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()))

	c.JSON(http.StatusOK, report)
}

func (h *DatasetHandler) LastReport(c *gin.Context) {
	report := h.runner.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No fetch run has completed yet",
			Code:  "NO_REPORT",
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DatasetHandler) findLocation(key string) (weather.Location, bool) {
	for _, loc := range h.locations {
		if loc.Key == key {
			return loc, true
		}
	}
	return weather.Location{}, false
}

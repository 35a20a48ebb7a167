package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/config"
	"github.com/vzahanych/weather-data-fetcher/internal/weather"
	"github.com/vzahanych/weather-data-fetcher/pkg/telemetry"
)

const (
	dateLayout   = "2006-01-02"
	maxErrorBody = 512
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrInvalidPayload   = errors.New("invalid JSON payload")
	ErrDatasetDisabled  = errors.New("dataset disabled")
	ErrUnknownDataset   = errors.New("unknown dataset")
)

type OpenMeteoService struct {
	baseURLs map[string]string
	client   *http.Client
	units    config.UnitsConfig
	datasets config.DatasetsConfig
	logger   *zap.Logger
	tele     *telemetry.Telemetry
	now      func() time.Time
}

func NewOpenMeteoServiceWithConfig(cfg config.FetchConfig, logger *zap.Logger, tele *telemetry.Telemetry) *OpenMeteoService {
	return &OpenMeteoService{
		baseURLs: map[string]string{
			"forecast": strings.TrimRight(cfg.ForecastBaseURL, "/"),
			"archive":  strings.TrimRight(cfg.ArchiveBaseURL, "/"),
		},
		client: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		units:    cfg.Units,
		datasets: cfg.Datasets,
		logger:   logger,
		tele:     tele,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for archive date ranges.
func (s *OpenMeteoService) WithClock(now func() time.Time) *OpenMeteoService {
	s.now = now
	return s
}

func (s *OpenMeteoService) Name() string {
	return "open-meteo"
}

func (s *OpenMeteoService) Fetch(ctx context.Context, loc weather.Location, ds weather.Dataset) (json.RawMessage, error) {
	ctx, span := s.tele.GetTracer().Start(ctx, "open-meteo.Fetch")
	defer span.End()

	span.SetAttributes(
		attribute.String("location", loc.Key),
		attribute.String("dataset", string(ds)),
		attribute.Float64("lat", loc.Latitude),
		attribute.Float64("lon", loc.Longitude),
	)

	dc, ok := s.datasets.Get(ds)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, ds)
	}
	if !dc.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDatasetDisabled, ds)
	}

	u, err := s.buildURL(loc, dc)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Requesting dataset",
		zap.String("location", loc.Key),
		zap.String("dataset", string(ds)),
		zap.String("url", u))

	data, err := s.get(ctx, u)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		s.tele.RecordError(ctx, err, map[string]interface{}{"url": u})
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("bytes", len(data)),
	)

	return data, nil
}

func (s *OpenMeteoService) buildURL(loc weather.Location, dc config.DatasetConfig) (string, error) {
	base, ok := s.baseURLs[dc.Endpoint]
	if !ok {
		return "", fmt.Errorf("unknown endpoint family %q", dc.Endpoint)
	}

	u, err := url.Parse(fmt.Sprintf("%s/%s", base, dc.Endpoint))
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("temperature_unit", s.units.Temperature)
	q.Set("precipitation_unit", s.units.Precipitation)
	q.Set("wind_speed_unit", s.units.WindSpeed)
	q.Set("timezone", s.units.Timezone)

	if dc.RangeDays > 0 {
		start, end := dateRange(s.now(), dc.RangeDays)
		q.Set("start_date", start)
		q.Set("end_date", end)
	}

	for key, value := range dc.Params {
		q.Set(key, value)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dateRange returns the inclusive window of days ending yesterday.
func dateRange(now time.Time, days int) (string, string) {
	end := now.AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))
	return start.Format(dateLayout), end.Format(dateLayout)
}

func (s *OpenMeteoService) get(ctx context.Context, u string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	// the whole body must be one JSON document, trailing data included
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPayload, len(body))
	}

	return json.RawMessage(body), nil
}

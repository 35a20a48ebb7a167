package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vzahanych/weather-data-fetcher/internal/config"
	"github.com/vzahanych/weather-data-fetcher/internal/weather"
	"github.com/vzahanych/weather-data-fetcher/pkg/telemetry"
)

var oneonta = weather.Location{Key: "oneonta", Name: "Oneonta, NY", Latitude: 42.4534, Longitude: -75.0510}

type capturedRequest struct {
	path  string
	query url.Values
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*OpenMeteoService, *config.FetchConfig) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig().Fetch
	cfg.ForecastBaseURL = srv.URL + "/v1"
	cfg.ArchiveBaseURL = srv.URL + "/archive-api/v1"

	svc := NewOpenMeteoServiceWithConfig(cfg, zaptest.NewLogger(t), &telemetry.Telemetry{})
	svc.WithClock(func() time.Time {
		return time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	})
	return svc, &cfg
}

func capture(t *testing.T, got *capturedRequest, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestOpenMeteoService_Name(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, "open-meteo", svc.Name())
}

func TestOpenMeteoService_FetchForecast(t *testing.T) {
	var got capturedRequest
	payload := `{"latitude":42.45,"hourly":{"time":["2025-03-15T00:00"],"temperature_2m":[31.2]}}`
	svc, _ := newTestService(t, capture(t, &got, payload))

	data, err := svc.Fetch(context.Background(), oneonta, weather.Forecast)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(data))

	assert.Equal(t, "/v1/forecast", got.path)
	assert.Equal(t, "42.4534", got.query.Get("latitude"))
	assert.Equal(t, "-75.0510", got.query.Get("longitude"))
	assert.Equal(t, "fahrenheit", got.query.Get("temperature_unit"))
	assert.Equal(t, "inch", got.query.Get("precipitation_unit"))
	assert.Equal(t, "mph", got.query.Get("wind_speed_unit"))
	assert.Equal(t, "auto", got.query.Get("timezone"))
	assert.Equal(t, "16", got.query.Get("forecast_days"))
	assert.Contains(t, got.query.Get("hourly"), "apparent_temperature")
	assert.Contains(t, got.query.Get("daily"), "sunrise")
	assert.Empty(t, got.query.Get("start_date"))
}

func TestOpenMeteoService_FetchHistorical(t *testing.T) {
	var got capturedRequest
	svc, _ := newTestService(t, capture(t, &got, `{"hourly":{}}`))

	_, err := svc.Fetch(context.Background(), oneonta, weather.Historical)
	require.NoError(t, err)

	assert.Equal(t, "/v1/forecast", got.path)
	assert.Equal(t, "30", got.query.Get("past_days"))
	assert.Equal(t, "0", got.query.Get("forecast_days"))
	assert.Equal(t, "temperature_2m,precipitation,sunshine_duration,is_day", got.query.Get("hourly"))
}

func TestOpenMeteoService_FetchYearlyDaily(t *testing.T) {
	var got capturedRequest
	svc, _ := newTestService(t, capture(t, &got, `{"daily":{"time":[],"temperature_2m_mean":[]}}`))

	_, err := svc.Fetch(context.Background(), oneonta, weather.YearlyDaily)
	require.NoError(t, err)

	assert.Equal(t, "/archive-api/v1/archive", got.path)
	assert.Equal(t, "temperature_2m_mean", got.query.Get("daily"))
	assert.Equal(t, "2024-03-15", got.query.Get("start_date"))
	assert.Equal(t, "2025-03-14", got.query.Get("end_date"))
}

func TestOpenMeteoService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":true,"reason":"upstream"}`, http.StatusInternalServerError)
			},
			wantErr: ErrUnexpectedStatus,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":true,"reason":"Cannot initialize WeatherVariable"}`, http.StatusBadRequest)
			},
			wantErr: ErrUnexpectedStatus,
		},
		{
			name: "truncated body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hourly": {`))
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name: "trailing data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hourly":{}} <html>oops</html>`))
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.handler)

			data, err := svc.Fetch(context.Background(), oneonta, weather.Forecast)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, data)
		})
	}
}

func TestOpenMeteoService_StatusErrorIncludesBody(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Cannot initialize WeatherVariable", http.StatusBadRequest)
	})

	_, err := svc.Fetch(context.Background(), oneonta, weather.Forecast)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Cannot initialize WeatherVariable")
}

func TestOpenMeteoService_Timeout(t *testing.T) {
	release := make(chan struct{})
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	svc.client.Timeout = 50 * time.Millisecond

	_, err := svc.Fetch(context.Background(), oneonta, weather.Forecast)
	assert.Error(t, err)
}

func TestOpenMeteoService_DisabledDataset(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := config.NewDefaultConfig().Fetch
	cfg.ForecastBaseURL = srv.URL
	cfg.Datasets.Historical.Enabled = false

	svc := NewOpenMeteoServiceWithConfig(cfg, zaptest.NewLogger(t), nil)

	_, err := svc.Fetch(context.Background(), oneonta, weather.Historical)
	assert.ErrorIs(t, err, ErrDatasetDisabled)
	assert.False(t, called)

	_, err = svc.Fetch(context.Background(), oneonta, weather.Dataset("monthly"))
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestOpenMeteoService_PayloadKeptVerbatim(t *testing.T) {
	payload := `{"b":1,"a":{"z":[1,2,3],"y":null}}`
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	data, err := svc.Fetch(context.Background(), oneonta, weather.Forecast)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.True(t, json.Valid(data))
}

func TestDateRange(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	start, end := dateRange(now, 365)
	assert.Equal(t, "2023-03-02", start)
	assert.Equal(t, "2024-02-29", end)

	start, end = dateRange(now, 1)
	assert.Equal(t, end, start)
}

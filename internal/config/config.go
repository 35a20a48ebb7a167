package config

import (
	"sync/atomic"
	"time"

	"github.com/vzahanych/weather-data-fetcher/internal/weather"
)

var configValue atomic.Value

func GetConfig() *Config {
	return configValue.Load().(*Config)
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string           `mapstructure:"version"`
	Environment string           `mapstructure:"environment"`
	Fetch       FetchConfig      `mapstructure:"fetch"`
	Locations   []LocationConfig `mapstructure:"locations" validate:"required,min=1,unique=Key,dive"`
	Server      ServerConfig     `mapstructure:"server"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type FetchConfig struct {
	DataDir         string         `mapstructure:"data_dir" validate:"required"`
	Timeout         int            `mapstructure:"timeout" validate:"gt=0"`
	ForecastBaseURL string         `mapstructure:"forecast_base_url" validate:"required,url"`
	ArchiveBaseURL  string         `mapstructure:"archive_base_url" validate:"required,url"`
	Units           UnitsConfig    `mapstructure:"units"`
	Datasets        DatasetsConfig `mapstructure:"datasets"`
}

// RequestTimeout is the per-request HTTP timeout.
func (f FetchConfig) RequestTimeout() time.Duration {
	return time.Duration(f.Timeout) * time.Second
}

// UnitsConfig is sent with every request.
type UnitsConfig struct {
	Temperature   string `mapstructure:"temperature" validate:"required,oneof=fahrenheit celsius"`
	Precipitation string `mapstructure:"precipitation" validate:"required,oneof=inch mm"`
	WindSpeed     string `mapstructure:"wind_speed" validate:"required,oneof=mph kmh ms kn"`
	Timezone      string `mapstructure:"timezone" validate:"required"`
}

type DatasetsConfig struct {
	Forecast    DatasetConfig `mapstructure:"forecast"`
	Historical  DatasetConfig `mapstructure:"historical"`
	YearlyDaily DatasetConfig `mapstructure:"yearly_daily"`
}

// Get returns the settings for a dataset.
func (d DatasetsConfig) Get(ds weather.Dataset) (DatasetConfig, bool) {
	switch ds {
	case weather.Forecast:
		return d.Forecast, true
	case weather.Historical:
		return d.Historical, true
	case weather.YearlyDaily:
		return d.YearlyDaily, true
	default:
		return DatasetConfig{}, false
	}
}

// DatasetConfig describes one request. Endpoint selects the API family
// ("forecast" or "archive"); RangeDays > 0 adds a start_date/end_date window
// ending yesterday.
type DatasetConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Endpoint  string            `mapstructure:"endpoint" validate:"required,oneof=forecast archive"`
	RangeDays int               `mapstructure:"range_days" validate:"gte=0"`
	Params    map[string]string `mapstructure:"params"`
}

type LocationConfig struct {
	Key       string  `mapstructure:"key" validate:"required,alphanum"`
	Name      string  `mapstructure:"name" validate:"required"`
	Latitude  float64 `mapstructure:"latitude" validate:"latitude"`
	Longitude float64 `mapstructure:"longitude" validate:"longitude"`
}

func (l LocationConfig) Location() weather.Location {
	return weather.Location{
		Key:       l.Key,
		Name:      l.Name,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}

// WeatherLocations converts the configured locations, keeping their order.
func (c *Config) WeatherLocations() []weather.Location {
	locations := make([]weather.Location, 0, len(c.Locations))
	for _, l := range c.Locations {
		locations = append(locations, l.Location())
	}
	return locations
}

type ServerConfig struct {
	Port         int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Fetch: FetchConfig{
			DataDir:         "data",
			Timeout:         10,
			ForecastBaseURL: "https://api.open-meteo.com/v1",
			ArchiveBaseURL:  "https://archive-api.open-meteo.com/v1",
			Units: UnitsConfig{
				Temperature:   "fahrenheit",
				Precipitation: "inch",
				WindSpeed:     "mph",
				Timezone:      "auto",
			},
			Datasets: DatasetsConfig{
				Forecast: DatasetConfig{
					Enabled:  true,
					Endpoint: "forecast",
					Params: map[string]string{
						"hourly":        "temperature_2m,apparent_temperature,relative_humidity_2m,dew_point_2m,precipitation,sunshine_duration,is_day,weather_code,wind_speed_10m,wind_direction_10m,uv_index",
						"daily":         "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,uv_index_max,sunrise,sunset",
						"forecast_days": "16",
					},
				},
				Historical: DatasetConfig{
					Enabled:  true,
					Endpoint: "forecast",
					Params: map[string]string{
						"hourly":        "temperature_2m,precipitation,sunshine_duration,is_day",
						"past_days":     "30",
						"forecast_days": "0",
					},
				},
				YearlyDaily: DatasetConfig{
					Enabled:   true,
					Endpoint:  "archive",
					RangeDays: 365,
					Params: map[string]string{
						"daily": "temperature_2m_mean",
					},
				},
			},
		},
		Locations: []LocationConfig{
			{Key: "oneonta", Name: "Oneonta, NY", Latitude: 42.4534, Longitude: -75.0510},
			{Key: "greenville", Name: "Greenville, SC", Latitude: 34.8526, Longitude: -82.3940},
		},
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}

package handlers

import (
	"time"

	"github.com/vzahanych/weather-data-fetcher/internal/climate"
	"github.com/vzahanych/weather-data-fetcher/internal/server/utils"
	"github.com/vzahanych/weather-data-fetcher/internal/weather"
)

// LocationURI binds the :key path parameter.
type LocationURI struct {
	Key string `uri:"key" binding:"required,alphanum,max=64"`
}

// DatasetURI binds the :key and :dataset path parameters.
type DatasetURI struct {
	Key     string `uri:"key" binding:"required,alphanum,max=64"`
	Dataset string `uri:"dataset" binding:"required"`
}

type DatasetStatus struct {
	Dataset   weather.Dataset `json:"dataset"`
	File      string          `json:"file"`
	URL       string          `json:"url"`
	Available bool            `json:"available"`
	Size      int64           `json:"size,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type LocationStatus struct {
	weather.Location
	Datasets []DatasetStatus `json:"datasets"`
}

type LocationsResponse struct {
	Locations []LocationStatus `json:"locations"`
}

type MonthlyAveragesResponse struct {
	Location string                   `json:"location"`
	Name     string                   `json:"name"`
	Unit     string                   `json:"unit,omitempty"`
	Months   []climate.MonthlyAverage `json:"months"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details string                  `json:"details,omitempty"`
	Fields  []utils.ValidationError `json:"fields,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp,omitempty"`
}

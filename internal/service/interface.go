package service

import (
	"context"
	"encoding/json"

	"github.com/vzahanych/weather-data-fetcher/internal/weather"
)

// DatasetService fetches one dataset for one location and returns the
// upstream document untouched.
type DatasetService interface {
	Fetch(ctx context.Context, loc weather.Location, ds weather.Dataset) (json.RawMessage, error)
	Name() string
}

package fetcher

import (
	"time"

	"github.com/vzahanych/weather-data-fetcher/internal/weather"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusFetchFailed Status = "fetch_failed"
	StatusSaveFailed  Status = "save_failed"
	StatusSkipped     Status = "skipped"
	// StatusDisabled marks a dataset turned off in config. It is neither a
	// success nor a failure.
	StatusDisabled Status = "disabled"
)

// Result is the outcome of one fetch-and-save attempt.
type Result struct {
	Location string          `json:"location"`
	Dataset  weather.Dataset `json:"dataset"`
	File     string          `json:"file"`
	Status   Status          `json:"status"`
	Error    string          `json:"error,omitempty"`
}

type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusOK {
			n++
		}
	}
	return n
}

func (r *Report) Disabled() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusDisabled {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded() - r.Disabled()
}

// OK reports whether every enabled dataset was fetched and saved.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

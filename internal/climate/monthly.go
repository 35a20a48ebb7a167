// Package climate derives monthly temperature averages from the yearly daily
// dataset.
package climate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrMissingDaily   = errors.New("daily.time or daily.temperature_2m_mean missing")
	ErrLengthMismatch = errors.New("daily.time and daily.temperature_2m_mean differ in length")
)

type MonthlyAverage struct {
	Month string  `json:"month"`
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Days  int     `json:"days"`
}

type yearlyDaily struct {
	DailyUnits map[string]string `json:"daily_units"`
	Daily      *struct {
		Time  []string   `json:"time"`
		TMean []*float64 `json:"temperature_2m_mean"`
	} `json:"daily"`
}

// MonthlyAverages groups the daily mean temperatures by calendar month and
// averages them, rounded to one decimal. Days without a value (null upstream) are left out; a month
// with no values at all is still listed with Days == 0.
func MonthlyAverages(raw json.RawMessage) ([]MonthlyAverage, error) {
	var doc yearlyDaily
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode yearly daily dataset: %w", err)
	}
	if doc.Daily == nil || doc.Daily.Time == nil || doc.Daily.TMean == nil {
		return nil, ErrMissingDaily
	}
	if len(doc.Daily.Time) != len(doc.Daily.TMean) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(doc.Daily.Time), len(doc.Daily.TMean))
	}

	type acc struct {
		sum   float64
		count int
		first time.Time
	}
	months := make(map[string]*acc)

	for i, day := range doc.Daily.Time {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", day, err)
		}

		key := d.Format("2006-01")
		a, ok := months[key]
		if !ok {
			a = &acc{first: d}
			months[key] = a
		}

		if v := doc.Daily.TMean[i]; v != nil {
			a.sum += *v
			a.count++
		}
	}

	result := make([]MonthlyAverage, 0, len(months))
	for key, a := range months {
		m := MonthlyAverage{
			Month: key,
			Label: a.first.Format("Jan 2006"),
			Days:  a.count,
		}
		if a.count > 0 {
			m.Mean = roundTenth(a.sum / float64(a.count))
		}
		result = append(result, m)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Month < result[j].Month
	})

	return result, nil
}

// roundTenth rounds to one decimal with halves going up, so -2.25 becomes -2.2.
func roundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Unit returns the temperature unit label reported upstream, if any.
func Unit(raw json.RawMessage) string {
	var doc yearlyDaily
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	return doc.DailyUnits["temperature_2m_mean"]
}

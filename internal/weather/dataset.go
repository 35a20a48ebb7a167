package weather

import "fmt"

// Dataset identifies one of the documents fetched per location.
type Dataset string

const (
	Forecast    Dataset = "forecast"
	Historical  Dataset = "historical"
	YearlyDaily Dataset = "yearly_daily"
)

// Datasets returns every dataset in run order.
func Datasets() []Dataset {
	return []Dataset{Forecast, Historical, YearlyDaily}
}

// ParseDataset maps a dataset name back to its Dataset value.
func ParseDataset(name string) (Dataset, error) {
	for _, ds := range Datasets() {
		if string(ds) == name {
			return ds, nil
		}
	}
	return "", fmt.Errorf("unknown dataset %q", name)
}

// FileName returns the output file name for a location key and dataset.
func FileName(key string, ds Dataset) string {
	return fmt.Sprintf("%s_%s.json", key, ds)
}

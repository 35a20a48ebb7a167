package weather

import "fmt"

// Location is a named point the fetcher collects datasets for.
type Location struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Key
}

// Coordinates formats the location for logs.
func (l Location) Coordinates() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

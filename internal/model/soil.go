package model

import "strconv"

// Coordinate is a point for which soil metrics are requested.
type Coordinate struct {
	Lat float64
	Lon float64
}

// SoilMetrics is the subset of the backend's soil response the client shows.
// A nil field means the backend did not report it.
type SoilMetrics struct {
	PH            *float64 `json:"pH,omitempty"`
	OrganicCarbon *float64 `json:"organicCarbon,omitempty"`
	Nitrogen      *float64 `json:"nitrogen,omitempty"`
}

// FormatMetric renders a metric for display, "N/A" when absent.
func FormatMetric(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

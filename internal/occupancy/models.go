// Package occupancy implements the pool occupancy sampling pipeline:
// fetching the source page, extracting the current reading, and handing
// validated samples to the store.
package occupancy

import (
	"time"
)

// Sample is one persisted occupancy reading.
type Sample struct {
	// Timestamp is always UTC, truncated to whole seconds.
	Timestamp time.Time `json:"timestamp"`

	// Occupancy is the number of people reported by the source page.
	Occupancy int `json:"occupancy"`

	// Capacity is the maximum reported by the page, when present.
	Capacity *int `json:"capacity,omitempty"`

	// RawStatus keeps the raw page fragment the reading was taken from,
	// for traceability when the source layout drifts.
	RawStatus string `json:"raw_status,omitempty"`
}

// Percentage returns occupancy as a share of capacity, or 0 when the
// capacity is unknown or zero.
func (s Sample) Percentage() float64 {
	if s.Capacity == nil || *s.Capacity <= 0 {
		return 0
	}
	return float64(s.Occupancy) / float64(*s.Capacity) * 100
}

// RawPage is the unparsed result of one fetch.
type RawPage struct {
	Body       []byte
	StatusCode int
}

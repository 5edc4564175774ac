package models

import "strings"

// Branch is a bank office with a location and optional opening hours.
// Records are produced by the normalizer and never mutated afterwards.
type Branch struct {
	ID           string  `json:"id"                     validate:"required"`
	Name         string  `json:"name"                   validate:"required"`
	Address      string  `json:"address,omitempty"`
	City         string  `json:"city,omitempty"`
	WorkingHours string  `json:"workingHours,omitempty"` // "Monday: 09:00-17:00; Tuesday: ..."
	Lat          float64 `json:"lat"                    validate:"latitude"`
	Lon          float64 `json:"lon"                    validate:"longitude"`
}

// Coordinates returns the branch position.
func (b Branch) Coordinates() Coordinates {
	return Coordinates{Latitude: b.Lat, Longitude: b.Lon}
}

// Hours splits WorkingHours into its per-day items, dropping blanks.
func (b Branch) Hours() []string {
	if b.WorkingHours == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(b.WorkingHours, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

// ATM is a cash machine with a location and an optional label.
type ATM struct {
	ID    string  `json:"id"              validate:"required"`
	Lat   float64 `json:"lat"             validate:"latitude"`
	Lon   float64 `json:"lon"             validate:"longitude"`
	Label string  `json:"label,omitempty"`
}

// Coordinates returns the ATM position.
func (a ATM) Coordinates() Coordinates {
	return Coordinates{Latitude: a.Lat, Longitude: a.Lon}
}

// Package mapview is the headless map widget of the detail screen and its
// static snapshot renderer.
package mapview

import (
	"slices"
	"sync"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/models"
)

// Marker key prefixes.
const (
	BranchKeyPrefix = "branch-"
	ATMKeyPrefix    = "atm-"
)

// Coordinate is a marker position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Marker is a pin on the map.
type Marker struct {
	Coordinate Coordinate `json:"coordinate"`
	Title      string     `json:"title"`
	Key        string     `json:"key"`
}

// BranchMarker pins a branch under its name.
func BranchMarker(b models.Branch) Marker {
	return Marker{
		Coordinate: Coordinate{Latitude: b.Lat, Longitude: b.Lon},
		Title:      b.Name,
		Key:        BranchKeyPrefix + b.ID,
	}
}

// ATMMarker pins an ATM under its label, or "ATM" when it has none.
func ATMMarker(a models.ATM) Marker {
	title := a.Label
	if title == "" {
		title = "ATM"
	}
	return Marker{
		Coordinate: Coordinate{Latitude: a.Lat, Longitude: a.Lon},
		Title:      title,
		Key:        ATMKeyPrefix + a.ID,
	}
}

// Widget holds the visible region and the pins. Animations complete immediately;
// the last requested duration is kept for inspection.
type Widget struct {
	mu           sync.RWMutex
	region       geo.Region
	markers      []Marker
	lastDuration time.Duration
	animations   int
}

// NewWidget creates a widget showing the initial region.
func NewWidget(initial geo.Region) *Widget {
	return &Widget{region: initial}
}

// AnimateToRegion moves the viewport, replacing any animation in progress.
func (w *Widget) AnimateToRegion(region geo.Region, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.region = region
	w.lastDuration = duration
	w.animations++
}

// SetMarkers replaces the pins.
func (w *Widget) SetMarkers(markers []Marker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markers = slices.Clone(markers)
}

// Region returns the current viewport.
func (w *Widget) Region() geo.Region {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.region
}

// Markers returns a copy of the pins.
func (w *Widget) Markers() []Marker {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.markers)
}

// LastAnimation returns the duration of the last animation and how many were requested.
func (w *Widget) LastAnimation() (time.Duration, int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastDuration, w.animations
}

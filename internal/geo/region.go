package geo

import (
	"errors"
	"math"

	"github.com/UnknownOlympus/branchmap/internal/models"
)

// Defaults for RegionForCoords.
const (
	DefaultPadding  = 1.3
	DefaultMinDelta = 0.02
	DefaultMaxDelta = 8.0

	// BranchDelta is the span used when the map frames a single branch.
	BranchDelta = 0.05
)

// ErrNoCoordinates is returned when a region is requested for an empty set of points.
var ErrNoCoordinates = errors.New("no coordinates to frame")

// Region is a rectangular map viewport: a center plus the visible latitude and longitude span in degrees.
type Region struct {
	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`
	LatDelta  float64 `json:"latDelta"`
	LonDelta  float64 `json:"lonDelta"`
}

// Center returns the region center.
func (r Region) Center() models.Coordinates {
	return models.Coordinates{Latitude: r.CenterLat, Longitude: r.CenterLon}
}

// Contains reports whether c lies inside the region, allowing eps degrees of slack.
func (r Region) Contains(c models.Coordinates, eps float64) bool {
	return math.Abs(c.Latitude-r.CenterLat) <= r.LatDelta/2+eps &&
		math.Abs(c.Longitude-r.CenterLon) <= r.LonDelta/2+eps
}

// BranchRegion frames a single point at the fixed branch zoom.
func BranchRegion(c models.Coordinates) Region {
	return Region{CenterLat: c.Latitude, CenterLon: c.Longitude, LatDelta: BranchDelta, LonDelta: BranchDelta}
}

type regionOptions struct {
	padding  float64
	minDelta float64
	maxDelta float64
}

// RegionOption customizes RegionForCoords.
type RegionOption func(*regionOptions)

// WithPadding sets the factor applied to the bounding box span.
func WithPadding(factor float64) RegionOption {
	return func(o *regionOptions) { o.padding = factor }
}

// WithMinDelta sets the smallest allowed span.
func WithMinDelta(delta float64) RegionOption {
	return func(o *regionOptions) { o.minDelta = delta }
}

// WithMaxDelta sets the largest allowed span.
func WithMaxDelta(delta float64) RegionOption {
	return func(o *regionOptions) { o.maxDelta = delta }
}

// RegionForCoords computes a region framing every coordinate.
//
// A single coordinate is centered with the minimum span. Two or more use the
// bounding box midpoint as center and the padded box span, clamped to
// [minDelta, maxDelta]. Sets that cross the antimeridian are not handled.
func RegionForCoords(coords []models.Coordinates, opts ...RegionOption) (Region, error) {
	options := regionOptions{padding: DefaultPadding, minDelta: DefaultMinDelta, maxDelta: DefaultMaxDelta}
	for _, opt := range opts {
		opt(&options)
	}

	if len(coords) == 0 {
		return Region{}, ErrNoCoordinates
	}

	if len(coords) == 1 {
		return Region{
			CenterLat: coords[0].Latitude,
			CenterLon: coords[0].Longitude,
			LatDelta:  options.minDelta,
			LonDelta:  options.minDelta,
		}, nil
	}

	minLat, maxLat := coords[0].Latitude, coords[0].Latitude
	minLon, maxLon := coords[0].Longitude, coords[0].Longitude
	for _, c := range coords[1:] {
		minLat = math.Min(minLat, c.Latitude)
		maxLat = math.Max(maxLat, c.Latitude)
		minLon = math.Min(minLon, c.Longitude)
		maxLon = math.Max(maxLon, c.Longitude)
	}

	return Region{
		CenterLat: (minLat + maxLat) / 2,
		CenterLon: (minLon + maxLon) / 2,
		LatDelta:  clamp((maxLat-minLat)*options.padding, options.minDelta, options.maxDelta),
		LonDelta:  clamp((maxLon-minLon)*options.padding, options.minDelta, options.maxDelta),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

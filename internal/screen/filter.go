// Package screen holds the branch list and branch detail screens without their rendering:
// search, overlay state, status line, camera and map pins.
package screen

import (
	"strconv"
	"strings"

	"github.com/UnknownOlympus/branchmap/internal/models"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// Filter returns the branches whose name, city or address contains the trimmed query,
// ignoring case. An empty query returns the full list.
func Filter(branches []models.Branch, query string) []models.Branch {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return branches
	}

	matches := make([]models.Branch, 0)
	for _, b := range branches {
		if containsFold(b.Name, needle) || containsFold(b.City, needle) || containsFold(b.Address, needle) {
			matches = append(matches, b)
		}
	}

	return matches
}

func containsFold(field, lowerNeedle string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerNeedle)
}

// MapsURL links to a Google Maps search for the position.
func MapsURL(c models.Coordinates) string {
	return mapsSearchURL + formatNumber(c.Latitude) + "," + formatNumber(c.Longitude)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

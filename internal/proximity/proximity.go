// Package proximity selects the ATMs within a radius of a branch.
package proximity

import (
	"math"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/models"
)

// DefaultRadiusKm is the search radius used by the detail screen.
const DefaultRadiusKm = 15.0

// Match is an ATM paired with its distance from the branch.
type Match struct {
	ATM        models.ATM `json:"atm"`
	DistanceKm float64    `json:"distanceKm"`
}

// Within returns the ATMs at most radiusKm away from branch, in input order,
// together with their distances. ATMs with non-finite coordinates are skipped.
func Within(branch models.Branch, atms []models.ATM, radiusKm float64) []Match {
	origin := branch.Coordinates()
	matches := make([]Match, 0)

	for _, atm := range atms {
		if !finite(atm.Lat) || !finite(atm.Lon) {
			continue
		}
		d := geo.Distance(origin, atm.Coordinates())
		if d <= radiusKm {
			matches = append(matches, Match{ATM: atm, DistanceKm: d})
		}
	}

	return matches
}

// Nearby is Within without the distances.
func Nearby(branch models.Branch, atms []models.ATM, radiusKm float64) []models.ATM {
	matches := Within(branch, atms, radiusKm)
	nearby := make([]models.ATM, len(matches))
	for i, m := range matches {
		nearby[i] = m.ATM
	}
	return nearby
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

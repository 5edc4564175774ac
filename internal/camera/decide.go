// Package camera decides where the detail map should look and drives the map widget there.
//
// The decision is a pure function of the overlay inputs. The Controller applies decisions,
// defers fits to the next frame so markers are placed first and lets newer decisions
// supersede pending ones.
package camera

import (
	"time"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/models"
)

const (
	// BranchDuration is the animation length when framing the branch alone.
	BranchDuration = 350 * time.Millisecond
	// FitDuration is the animation length when framing the branch with its ATMs.
	FitDuration = 450 * time.Millisecond

	FitPadding  = 1.4
	FitMinDelta = 0.02
	FitMaxDelta = 6.0
)

// Kind classifies an Action.
type Kind int

const (
	KindNone   Kind = iota // leave the camera where it is
	KindBranch             // frame the branch at the fixed zoom
	KindFit                // frame the branch and its nearby ATMs
)

func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindFit:
		return "fit"
	default:
		return "none"
	}
}

// Inputs are the overlay facts the camera reacts to.
type Inputs struct {
	OverlayEnabled bool
	DataFetched    bool
	NearbyCount    int
}

// Action is what the camera should do.
type Action struct {
	Kind      Kind
	Region    geo.Region
	Duration  time.Duration
	NextFrame bool // apply on the next frame rather than immediately
}

// Decide maps the inputs to a camera action:
//
//	overlay off                  -> branch region, 350ms
//	overlay on, not fetched      -> nothing
//	overlay on, fetched, 0 ATMs  -> branch region, 350ms
//	overlay on, fetched, N ATMs  -> fit branch and ATMs on the next frame, 450ms
func Decide(branch models.Coordinates, nearby []models.Coordinates, in Inputs) Action {
	switch {
	case !in.OverlayEnabled:
		return branchAction(branch)
	case !in.DataFetched:
		return Action{Kind: KindNone}
	case in.NearbyCount == 0 || len(nearby) == 0:
		return branchAction(branch)
	}

	coords := make([]models.Coordinates, 0, len(nearby)+1)
	coords = append(coords, branch)
	coords = append(coords, nearby...)

	region, err := geo.RegionForCoords(coords,
		geo.WithPadding(FitPadding),
		geo.WithMinDelta(FitMinDelta),
		geo.WithMaxDelta(FitMaxDelta),
	)
	if err != nil {
		return branchAction(branch)
	}

	return Action{Kind: KindFit, Region: region, Duration: FitDuration, NextFrame: true}
}

func branchAction(branch models.Coordinates) Action {
	return Action{Kind: KindBranch, Region: geo.BranchRegion(branch), Duration: BranchDuration}
}

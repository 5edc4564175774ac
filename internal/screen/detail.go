package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/branchmap/internal/camera"
	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/mapview"
	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/proximity"
	"github.com/UnknownOlympus/branchmap/internal/query"
)

// InitialDelta is the span the detail map opens with.
const InitialDelta = 0.02

// ErrBranchNotFound is returned when the id is not in the branch list.
var ErrBranchNotFound = errors.New("branch not found")

// DetailView is a snapshot of the detail screen.
type DetailView struct {
	Branch   models.Branch     `json:"branch"`
	Hours    []string          `json:"hours,omitempty"`
	MapsURL  string            `json:"mapsUrl"`
	Overlay  bool              `json:"overlay"`
	Status   string            `json:"status,omitempty"`
	RadiusKm float64           `json:"radiusKm"`
	Nearby   []proximity.Match `json:"nearby,omitempty"`
	Region   geo.Region        `json:"region"`
	Markers  []mapview.Marker  `json:"markers"`
}

// BranchDetail is the detail screen of one branch. It owns the overlay switch, gates
// the ATM query with it, keeps the map pins in sync and feeds the camera.
type BranchDetail struct {
	branch   models.Branch
	atms     *query.Query[[]models.ATM]
	widget   *mapview.Widget
	camera   *camera.Controller
	radiusKm float64
	dev      bool
	log      *slog.Logger

	frames  camera.FrameScheduler
	metrics *metrics.Metrics

	mu          sync.Mutex
	overlay     bool
	matches     []proximity.Match
	unsubscribe func()
}

// DetailOption configures a BranchDetail.
type DetailOption func(*BranchDetail)

// WithRadius sets the ATM search radius in kilometres.
func WithRadius(km float64) DetailOption {
	return func(d *BranchDetail) { d.radiusKm = km }
}

// WithDevelopment appends raw error messages to the status line.
func WithDevelopment(dev bool) DetailOption {
	return func(d *BranchDetail) { d.dev = dev }
}

// WithFrameScheduler replaces the camera frame clock.
func WithFrameScheduler(frames camera.FrameScheduler) DetailOption {
	return func(d *BranchDetail) { d.frames = frames }
}

func WithDetailLogger(log *slog.Logger) DetailOption {
	return func(d *BranchDetail) { d.log = log }
}

func WithDetailMetrics(m *metrics.Metrics) DetailOption {
	return func(d *BranchDetail) { d.metrics = m }
}

// OpenBranchDetail resolves id from the branch list and opens its detail screen with the overlay off.
func OpenBranchDetail(
	ctx context.Context,
	branches *query.Query[[]models.Branch],
	atms *query.Query[[]models.ATM],
	id string,
	opts ...DetailOption,
) (*BranchDetail, error) {
	list, err := branches.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}

	var (
		branch models.Branch
		found  bool
	)
	for _, b := range list {
		if b.ID == id {
			branch, found = b, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, id)
	}

	d := &BranchDetail{
		branch:   branch,
		atms:     atms,
		radiusKm: proximity.DefaultRadiusKm,
		log:      slog.New(slog.DiscardHandler),
		frames:   camera.TickerFrames{},
	}
	for _, opt := range opts {
		opt(d)
	}

	center := branch.Coordinates()
	d.widget = mapview.NewWidget(geo.Region{
		CenterLat: center.Latitude,
		CenterLon: center.Longitude,
		LatDelta:  InitialDelta,
		LonDelta:  InitialDelta,
	})
	cameraOpts := []camera.Option{camera.WithFrameScheduler(d.frames), camera.WithLogger(d.log)}
	if d.metrics != nil {
		cameraOpts = append(cameraOpts, camera.WithMetrics(d.metrics))
	}
	d.camera = camera.NewController(d.widget, center, cameraOpts...)

	d.refresh()
	d.unsubscribe = atms.Subscribe(func(query.State[[]models.ATM]) { d.refresh() })

	return d, nil
}

// Branch returns the branch shown.
func (d *BranchDetail) Branch() models.Branch {
	return d.branch
}

// Widget returns the map widget.
func (d *BranchDetail) Widget() *mapview.Widget {
	return d.widget
}

// SetOverlay switches the ATM overlay, enabling or disabling the ATM query with it.
func (d *BranchDetail) SetOverlay(ctx context.Context, on bool) {
	d.mu.Lock()
	d.overlay = on
	d.mu.Unlock()

	d.log.DebugContext(ctx, "ATM overlay switched", "branch", d.branch.ID, "overlay", on)
	d.atms.SetEnabled(ctx, on)
	d.refresh()
}

// LoadATMs waits for the ATM query and returns the ATMs within the radius.
// It fails with query.ErrDisabled while the overlay is off and nothing is cached.
func (d *BranchDetail) LoadATMs(ctx context.Context) ([]proximity.Match, error) {
	if _, err := d.atms.Fetch(ctx); err != nil {
		d.log.ErrorContext(ctx, "Failed to load ATMs", "branch", d.branch.ID, "error", err)
		return nil, err
	}
	d.refresh()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.matches, nil
}

// Nearby returns the ATMs currently shown.
func (d *BranchDetail) Nearby() []models.ATM {
	d.mu.Lock()
	defer d.mu.Unlock()

	nearby := make([]models.ATM, len(d.matches))
	for i, m := range d.matches {
		nearby[i] = m.ATM
	}
	return nearby
}

// Status returns the overlay status line.
func (d *BranchDetail) Status() string {
	st := d.atms.State()

	d.mu.Lock()
	defer d.mu.Unlock()
	return StatusLine(d.overlay, st, len(d.matches), d.radiusKm, d.dev)
}

// View returns a snapshot of the screen. Region is where the camera is headed.
func (d *BranchDetail) View() DetailView {
	st := d.atms.State()

	d.mu.Lock()
	defer d.mu.Unlock()

	region, ok := d.camera.Target()
	if !ok {
		region = d.widget.Region()
	}

	return DetailView{
		Branch:   d.branch,
		Hours:    d.branch.Hours(),
		MapsURL:  MapsURL(d.branch.Coordinates()),
		Overlay:  d.overlay,
		Status:   StatusLine(d.overlay, st, len(d.matches), d.radiusKm, d.dev),
		RadiusKm: d.radiusKm,
		Nearby:   d.matches,
		Region:   region,
		Markers:  d.widget.Markers(),
	}
}

// Close stops observing the ATM query and drops pending camera work.
func (d *BranchDetail) Close() {
	d.mu.Lock()
	unsubscribe := d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	d.camera.Close()
}

// refresh recomputes nearby ATMs and pins from the ATM query, then moves the camera.
// Pins are placed before the camera decision so a fit frames mounted markers.
func (d *BranchDetail) refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.atms.State()

	d.matches = nil
	if d.overlay && st.HasData {
		d.matches = proximity.Within(d.branch, st.Data, d.radiusKm)
	}

	markers := make([]mapview.Marker, 0, len(d.matches)+1)
	markers = append(markers, mapview.BranchMarker(d.branch))
	coords := make([]models.Coordinates, 0, len(d.matches))
	for _, m := range d.matches {
		markers = append(markers, mapview.ATMMarker(m.ATM))
		coords = append(coords, m.ATM.Coordinates())
	}
	d.widget.SetMarkers(markers)

	d.camera.Update(coords, camera.Inputs{
		OverlayEnabled: d.overlay,
		DataFetched:    st.IsFetched,
		NearbyCount:    len(d.matches),
	})
}

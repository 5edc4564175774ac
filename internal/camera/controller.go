package camera

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/models"
)

// DefaultFrameInterval approximates one paint frame.
const DefaultFrameInterval = 16 * time.Millisecond

// MapWidget is the imperative side of the map the controller moves.
// A new call is expected to cancel any animation still running.
type MapWidget interface {
	AnimateToRegion(region geo.Region, duration time.Duration)
}

// FrameScheduler runs fn on the next frame, never before RequestFrame returns.
// The returned function cancels the request.
type FrameScheduler interface {
	RequestFrame(fn func()) (cancel func())
}

// TickerFrames schedules frames on a timer.
type TickerFrames struct {
	Interval time.Duration
}

func (f TickerFrames) RequestFrame(fn func()) func() {
	interval := f.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	timer := time.AfterFunc(interval, fn)
	return func() { timer.Stop() }
}

// Controller feeds Decide with the latest inputs and applies the result to a map widget.
type Controller struct {
	mu      sync.Mutex
	widget  MapWidget
	frames  FrameScheduler
	branch  models.Coordinates
	log     *slog.Logger
	metrics *metrics.Metrics

	hasLast    bool
	last       Inputs
	lastNearby []models.Coordinates

	seq    uint64
	cancel func()

	target    geo.Region
	hasTarget bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithFrameScheduler(frames FrameScheduler) Option {
	return func(c *Controller) { c.frames = frames }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController returns a controller for the map of one branch.
func NewController(widget MapWidget, branch models.Coordinates, opts ...Option) *Controller {
	c := &Controller{
		widget: widget,
		frames: TickerFrames{Interval: DefaultFrameInterval},
		branch: branch,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update applies the decision for the given inputs and returns it. Inputs identical
// to the previous call are ignored and reported as KindNone. Any new decision cancels
// a fit still waiting for its frame.
func (c *Controller) Update(nearby []models.Coordinates, in Inputs) Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasLast && c.last == in && slices.Equal(c.lastNearby, nearby) {
		return Action{Kind: KindNone}
	}
	c.hasLast = true
	c.last = in
	c.lastNearby = slices.Clone(nearby)

	c.cancelPendingLocked()
	c.seq++

	action := Decide(c.branch, nearby, in)
	if c.metrics != nil {
		c.metrics.CameraActions.WithLabelValues(action.Kind.String()).Inc()
	}
	c.log.Debug("Camera decision",
		"action", action.Kind.String(),
		"overlay", in.OverlayEnabled,
		"fetched", in.DataFetched,
		"nearby", in.NearbyCount,
	)

	if action.Kind != KindNone {
		c.target, c.hasTarget = action.Region, true
	}

	switch {
	case action.Kind == KindNone:
	case action.NextFrame:
		seq := c.seq
		c.cancel = c.frames.RequestFrame(func() { c.fire(seq, action) })
	default:
		c.widget.AnimateToRegion(action.Region, action.Duration)
	}

	return action
}

// Target returns the region of the latest decision that moves the camera, including
// a fit still waiting for its frame. It reports false before any such decision.
func (c *Controller) Target() (geo.Region, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.hasTarget
}

// Close drops any pending frame action.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
	c.seq++
}

func (c *Controller) fire(seq uint64, action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return
	}
	c.cancel = nil
	c.widget.AnimateToRegion(action.Region, action.Duration)
}

func (c *Controller) cancelPendingLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

package camera_test

import (
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/camera"
	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	branch = models.Coordinates{Latitude: 50.0, Longitude: 14.0}
	nearby = []models.Coordinates{
		{Latitude: 50.0, Longitude: 14.0},
		{Latitude: 50.1, Longitude: 14.1},
		{Latitude: 49.95, Longitude: 14.12},
	}
)

// manualFrames holds frame callbacks until Flush.
type manualFrames struct {
	mu      sync.Mutex
	pending []*pendingFrame
}

type pendingFrame struct {
	fn        func()
	cancelled bool
}

func (m *manualFrames) RequestFrame(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := &pendingFrame{fn: fn}
	m.pending = append(m.pending, frame)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		frame.cancelled = true
	}
}

func (m *manualFrames) Flush() {
	m.mu.Lock()
	frames := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, frame := range frames {
		m.mu.Lock()
		cancelled := frame.cancelled
		m.mu.Unlock()
		if !cancelled {
			frame.fn()
		}
	}
}

func TestDecide(t *testing.T) {
	t.Run("success - overlay off frames the branch", func(t *testing.T) {
		action := camera.Decide(branch, nearby, camera.Inputs{OverlayEnabled: false, DataFetched: true, NearbyCount: 3})

		assert.Equal(t, camera.KindBranch, action.Kind)
		assert.Equal(t, geo.BranchRegion(branch), action.Region)
		assert.Equal(t, 350*time.Millisecond, action.Duration)
		assert.False(t, action.NextFrame)
	})

	t.Run("success - loading is a no-op", func(t *testing.T) {
		action := camera.Decide(branch, nil, camera.Inputs{OverlayEnabled: true})

		assert.Equal(t, camera.KindNone, action.Kind)
	})

	t.Run("success - no nearby ATMs frames the branch", func(t *testing.T) {
		action := camera.Decide(branch, nil, camera.Inputs{OverlayEnabled: true, DataFetched: true})

		assert.Equal(t, camera.KindBranch, action.Kind)
		assert.InDelta(t, 0.05, action.Region.LatDelta, 1e-12)
		assert.InDelta(t, 0.05, action.Region.LonDelta, 1e-12)
		assert.Equal(t, 350*time.Millisecond, action.Duration)
	})

	t.Run("success - nearby ATMs are fitted on the next frame", func(t *testing.T) {
		action := camera.Decide(branch, nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})

		assert.Equal(t, camera.KindFit, action.Kind)
		assert.True(t, action.NextFrame)
		assert.Equal(t, 450*time.Millisecond, action.Duration)
		assert.True(t, action.Region.Contains(branch, 1e-9))
		for _, c := range nearby {
			assert.True(t, action.Region.Contains(c, 1e-9))
		}
		assert.InDelta(t, (50.1-49.95)*1.4, action.Region.LatDelta, 1e-9)
		assert.InDelta(t, (14.12-14.0)*1.4, action.Region.LonDelta, 1e-9)
	})

	t.Run("success - fit is clamped to six degrees", func(t *testing.T) {
		far := []models.Coordinates{{Latitude: 60.0, Longitude: 30.0}}
		action := camera.Decide(branch, far, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 1})

		assert.InDelta(t, 6.0, action.Region.LatDelta, 1e-12)
		assert.InDelta(t, 6.0, action.Region.LonDelta, 1e-12)
	})
}

func TestController(t *testing.T) {
	branchRegion := geo.BranchRegion(branch)

	t.Run("success - waits for data then fits on the next frame", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		frames := &manualFrames{}
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

		action := ctrl.Update(nil, camera.Inputs{OverlayEnabled: true})
		assert.Equal(t, camera.KindNone, action.Kind)
		widget.AssertNotCalled(t, "AnimateToRegion", mock.Anything, mock.Anything)

		action = ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})
		require.Equal(t, camera.KindFit, action.Kind)
		widget.AssertNotCalled(t, "AnimateToRegion", mock.Anything, mock.Anything)

		widget.On("AnimateToRegion", action.Region, 450*time.Millisecond).Once()
		frames.Flush()
	})

	t.Run("success - overlay off supersedes a pending fit", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		frames := &manualFrames{}
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

		ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})

		widget.On("AnimateToRegion", branchRegion, 350*time.Millisecond).Once()
		ctrl.Update(nearby, camera.Inputs{OverlayEnabled: false, DataFetched: true, NearbyCount: 3})

		frames.Flush()
	})

	t.Run("success - latest fit wins", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		frames := &manualFrames{}
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

		ctrl.Update(nearby[:2], camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 2})
		latest := ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})

		widget.On("AnimateToRegion", latest.Region, 450*time.Millisecond).Once()
		frames.Flush()
	})

	t.Run("success - identical inputs are ignored", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(&manualFrames{}))

		widget.On("AnimateToRegion", branchRegion, 350*time.Millisecond).Once()
		ctrl.Update(nil, camera.Inputs{})
		action := ctrl.Update(nil, camera.Inputs{})

		assert.Equal(t, camera.KindNone, action.Kind)
	})

	t.Run("success - overlay off always returns to the branch", func(t *testing.T) {
		priors := []struct {
			nearby []models.Coordinates
			in     camera.Inputs
		}{
			{nil, camera.Inputs{OverlayEnabled: true}},
			{nil, camera.Inputs{OverlayEnabled: true, DataFetched: true}},
			{nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3}},
		}

		for _, prior := range priors {
			widget := &recordingWidget{}
			frames := &manualFrames{}
			ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

			ctrl.Update(prior.nearby, prior.in)
			ctrl.Update(prior.nearby, camera.Inputs{OverlayEnabled: false, DataFetched: prior.in.DataFetched})
			frames.Flush()

			last, ok := widget.Last()
			require.True(t, ok)
			assert.Equal(t, branchRegion, last)
		}
	})

	t.Run("success - target follows the latest move", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		frames := &manualFrames{}
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

		_, ok := ctrl.Target()
		assert.False(t, ok)

		ctrl.Update(nil, camera.Inputs{OverlayEnabled: true})
		_, ok = ctrl.Target()
		assert.False(t, ok)

		fit := ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})
		target, ok := ctrl.Target()
		require.True(t, ok)
		assert.Equal(t, fit.Region, target)
		for _, c := range append(nearby, branch) {
			assert.True(t, target.Contains(c, 0))
		}

		widget.On("AnimateToRegion", branchRegion, 350*time.Millisecond).Once()
		ctrl.Update(nearby, camera.Inputs{OverlayEnabled: false, DataFetched: true, NearbyCount: 3})
		target, _ = ctrl.Target()
		assert.Equal(t, branchRegion, target)

		frames.Flush()
	})

	t.Run("success - closing drops the pending frame", func(t *testing.T) {
		widget := mocks.NewMapWidget(t)
		frames := &manualFrames{}
		ctrl := camera.NewController(widget, branch, camera.WithFrameScheduler(frames))

		ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})
		ctrl.Close()
		frames.Flush()
	})

	t.Run("success - ticker frames and metrics", func(t *testing.T) {
		m := metrics.NewMetrics(prometheus.NewRegistry())
		widget := &recordingWidget{}
		ctrl := camera.NewController(widget, branch,
			camera.WithFrameScheduler(camera.TickerFrames{Interval: time.Millisecond}),
			camera.WithMetrics(m),
		)

		action := ctrl.Update(nearby, camera.Inputs{OverlayEnabled: true, DataFetched: true, NearbyCount: 3})

		require.Eventually(t, func() bool {
			last, ok := widget.Last()
			return ok && last == action.Region
		}, time.Second, 5*time.Millisecond)
		assert.InDelta(t, 1, testutil.ToFloat64(m.CameraActions.WithLabelValues("fit")), 0)
	})
}

type recordingWidget struct {
	mu      sync.Mutex
	regions []geo.Region
}

func (w *recordingWidget) AnimateToRegion(region geo.Region, _ time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.regions = append(w.regions, region)
}

func (w *recordingWidget) Last() (geo.Region, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.regions) == 0 {
		return geo.Region{}, false
	}
	return w.regions[len(w.regions)-1], true
}

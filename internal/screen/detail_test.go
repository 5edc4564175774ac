package screen_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/mapview"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/query"
	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// heldFrames keeps frame callbacks until Flush.
type heldFrames struct {
	mu      sync.Mutex
	pending []func()
}

func (h *heldFrames) RequestFrame(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	cancelled := false
	h.pending = append(h.pending, func() {
		h.mu.Lock()
		skip := cancelled
		h.mu.Unlock()
		if !skip {
			fn()
		}
	})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		cancelled = true
	}
}

func (h *heldFrames) Flush() {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// atmSource serves ATMs once released.
type atmSource struct {
	release chan struct{}
	atms    []models.ATM
	err     error
}

func (s *atmSource) fetch(context.Context) ([]models.ATM, error) {
	if s.release != nil {
		<-s.release
	}
	return s.atms, s.err
}

func openDetail(t *testing.T, src *atmSource, id string, opts ...screen.DetailOption) (*screen.BranchDetail, error) {
	t.Helper()
	client := query.NewClient()
	branchQ := query.NewQuery(client, "branches", func(context.Context) ([]models.Branch, error) {
		return branches, nil
	}, query.Options{StaleTime: 5 * time.Minute, Enabled: true})
	atmQ := query.NewQuery(client, "atms", src.fetch, query.Options{StaleTime: 10 * time.Minute, GCTime: 30 * time.Minute})

	return screen.OpenBranchDetail(t.Context(), branchQ, atmQ, id, opts...)
}

func TestOpenBranchDetail(t *testing.T) {
	t.Run("error - unknown branch", func(t *testing.T) {
		detail, err := openDetail(t, &atmSource{}, "missing")

		require.Nil(t, detail)
		require.ErrorIs(t, err, screen.ErrBranchNotFound)
	})

	t.Run("success - opens on the branch with the overlay off", func(t *testing.T) {
		detail, err := openDetail(t, &atmSource{}, "B1", screen.WithFrameScheduler(&heldFrames{}))
		require.NoError(t, err)
		defer detail.Close()

		view := detail.View()
		assert.Equal(t, "Old Town", view.Branch.Name)
		assert.False(t, view.Overlay)
		assert.Empty(t, view.Status)
		assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=50.0833,14.4167", view.MapsURL)
		assert.Equal(t, geo.BranchRegion(branches[0].Coordinates()), view.Region)
		assert.Equal(t, []mapview.Marker{mapview.BranchMarker(branches[0])}, view.Markers)
	})
}

func TestBranchDetail_Overlay(t *testing.T) {
	near := []models.ATM{
		{ID: "A1", Lat: 50.0833, Lon: 14.4167, Label: "Lobby"},
		{ID: "A2", Lat: 50.09, Lon: 14.43},
		{ID: "A3", Lat: 50.07, Lon: 14.40},
		{ID: "far", Lat: 49.19, Lon: 16.6},
	}

	t.Run("success - waits for data then fits branch and ATMs", func(t *testing.T) {
		src := &atmSource{release: make(chan struct{}), atms: near}
		frames := &heldFrames{}
		detail, err := openDetail(t, src, "B1", screen.WithFrameScheduler(frames))
		require.NoError(t, err)
		defer detail.Close()

		widget := detail.Widget()
		_, animations := widget.LastAnimation()

		detail.SetOverlay(t.Context(), true)

		assert.Equal(t, "Checking nearby ATMs…", detail.Status())
		frames.Flush()
		_, afterToggle := widget.LastAnimation()
		assert.Equal(t, animations, afterToggle, "camera must hold still while loading")

		close(src.release)
		require.Eventually(t, func() bool { return len(widget.Markers()) == 4 }, waitFor, tick)
		assert.Equal(t, "3 ATMs within 15 km.", detail.Status())

		frames.Flush()
		region := widget.Region()
		duration, _ := widget.LastAnimation()
		assert.Equal(t, 450*time.Millisecond, duration)
		assert.True(t, region.Contains(branches[0].Coordinates(), 1e-9))
		for _, atm := range near[:3] {
			assert.True(t, region.Contains(atm.Coordinates(), 1e-9))
		}
		assert.InDelta(t, (50.09-50.07)*1.4, region.LatDelta, 1e-9)

		detail.SetOverlay(t.Context(), false)
		assert.Equal(t, geo.BranchRegion(branches[0].Coordinates()), widget.Region())
		assert.Len(t, widget.Markers(), 1)
		assert.Empty(t, detail.Status())
	})

	t.Run("success - no ATMs in range frames the branch", func(t *testing.T) {
		src := &atmSource{atms: near[3:]}
		detail, err := openDetail(t, src, "B1", screen.WithFrameScheduler(&heldFrames{}))
		require.NoError(t, err)
		defer detail.Close()

		detail.SetOverlay(t.Context(), true)

		require.Eventually(t, func() bool {
			return detail.Status() == "No ATMs within 15 km of this branch."
		}, waitFor, tick)
		duration, _ := detail.Widget().LastAnimation()
		assert.Equal(t, 350*time.Millisecond, duration)
		assert.Equal(t, geo.BranchRegion(branches[0].Coordinates()), detail.Widget().Region())
		assert.Empty(t, detail.Nearby())
	})

	t.Run("success - load ATMs returns the matches", func(t *testing.T) {
		src := &atmSource{atms: near}
		detail, err := openDetail(t, src, "B1", screen.WithFrameScheduler(&heldFrames{}), screen.WithRadius(5))
		require.NoError(t, err)
		defer detail.Close()

		detail.SetOverlay(t.Context(), true)
		matches, err := detail.LoadATMs(t.Context())

		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "A1", matches[0].ATM.ID)
		assert.Zero(t, matches[0].DistanceKm)
		assert.Len(t, detail.Nearby(), 3)
	})

	t.Run("error - ATM failure shows the stable message", func(t *testing.T) {
		src := &atmSource{err: errors.New("network error calling /atms: timeout")}
		detail, err := openDetail(t, src, "B1", screen.WithFrameScheduler(&heldFrames{}), screen.WithDevelopment(true))
		require.NoError(t, err)
		defer detail.Close()

		detail.SetOverlay(t.Context(), true)
		_, err = detail.LoadATMs(t.Context())

		require.Error(t, err)
		require.Eventually(t, func() bool {
			return detail.Status() == "Failed to load ATMs\nnetwork error calling /atms: timeout"
		}, waitFor, tick)
	})

	t.Run("error - overlay off keeps the ATM query disabled", func(t *testing.T) {
		detail, err := openDetail(t, &atmSource{atms: near}, "B1", screen.WithFrameScheduler(&heldFrames{}))
		require.NoError(t, err)
		defer detail.Close()

		_, err = detail.LoadATMs(t.Context())

		require.ErrorIs(t, err, query.ErrDisabled)
	})
}

package mapview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/UnknownOlympus/branchmap/internal/geo"
	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"googlemaps.github.io/maps"
)

// Snapshot defaults.
const (
	DefaultWidth  = 640
	DefaultHeight = 400
	maxZoom       = 21
	tileSize      = 256
)

// ErrEmptySnapshot is returned when the static map API answers without an image.
var ErrEmptySnapshot = errors.New("get empty image from Google Static Maps API")

// StaticMapClient is the part of the Google Maps client the renderer uses.
type StaticMapClient interface {
	StaticMap(ctx context.Context, r *maps.StaticMapRequest) (image.Image, error)
}

// Renderer draws a widget's region and pins with the Google Static Maps API.
type Renderer struct {
	client  StaticMapClient
	log     *slog.Logger
	metrics *metrics.Metrics
	width   int
	height  int
}

// NewGoogleClient creates a Google Maps client limited to rateLimit requests per second.
func NewGoogleClient(apiKey string, rateLimit int) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey), maps.WithRateLimit(rateLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return client, nil
}

// NewRenderer returns a renderer producing DefaultWidth x DefaultHeight snapshots. metrics may be nil.
func NewRenderer(client StaticMapClient, log *slog.Logger, metrics *metrics.Metrics) *Renderer {
	return &Renderer{client: client, log: log, metrics: metrics, width: DefaultWidth, height: DefaultHeight}
}

// Render requests a snapshot of region with the given pins.
func (r *Renderer) Render(ctx context.Context, region geo.Region, markers []Marker) (image.Image, error) {
	req := r.request(region, markers)
	r.log.DebugContext(ctx, "Rendering static map", "center", req.Center, "zoom", req.Zoom, "markers", len(markers))

	img, err := r.client.StaticMap(ctx, req)
	if err != nil {
		if r.metrics != nil {
			r.metrics.SnapshotErrors.Inc()
		}
		return nil, fmt.Errorf("failed to render static map: %w", err)
	}
	if img == nil {
		return nil, ErrEmptySnapshot
	}

	return img, nil
}

// RenderWidget renders the widget's current state as PNG into w.
func (r *Renderer) RenderWidget(ctx context.Context, w io.Writer, widget *Widget) error {
	img, err := r.Render(ctx, widget.Region(), widget.Markers())
	if err != nil {
		return err
	}
	if err = png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

func (r *Renderer) request(region geo.Region, markers []Marker) *maps.StaticMapRequest {
	req := &maps.StaticMapRequest{
		Center: fmt.Sprintf("%.6f,%.6f", region.CenterLat, region.CenterLon),
		Zoom:   ZoomForRegion(region, r.width, r.height),
		Size:   fmt.Sprintf("%dx%d", r.width, r.height),
	}

	var branches, atms []maps.LatLng
	for _, m := range markers {
		point := maps.LatLng{Lat: m.Coordinate.Latitude, Lng: m.Coordinate.Longitude}
		if strings.HasPrefix(m.Key, ATMKeyPrefix) {
			atms = append(atms, point)
		} else {
			branches = append(branches, point)
		}
	}
	if len(branches) > 0 {
		req.Markers = append(req.Markers, maps.Marker{Color: "red", Label: "B", Location: branches})
	}
	if len(atms) > 0 {
		req.Markers = append(req.Markers, maps.Marker{Color: "blue", Size: "small", Location: atms})
	}

	return req
}

// ZoomForRegion returns the largest Web Mercator zoom level at which a width x height
// image still shows the whole region.
func ZoomForRegion(region geo.Region, width, height int) int {
	zoom := maxZoom
	if region.LonDelta > 0 {
		zoom = min(zoom, zoomFor(region.LonDelta, width))
	}
	if region.LatDelta > 0 {
		zoom = min(zoom, zoomFor(region.LatDelta, height))
	}
	return max(zoom, 0)
}

func zoomFor(span float64, pixels int) int {
	return int(math.Floor(math.Log2(float64(pixels) * 360 / (tileSize * span))))
}

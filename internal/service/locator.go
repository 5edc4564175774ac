package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/normalize"
	"github.com/UnknownOlympus/branchmap/internal/query"
	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/UnknownOlympus/branchmap/internal/source"
)

// Cache keys.
const (
	BranchesKey = "branches"
	ATMsKey     = "atms"
)

// Settings tune the locator's cache and screens.
type Settings struct {
	BranchesStale time.Duration // freshness of the branch list
	ATMsStale     time.Duration // freshness of the ATM dataset
	ATMsGC        time.Duration // how long an unobserved ATM dataset is kept
	Retry         int           // retries on transport errors
	GCInterval    time.Duration // cache collection period
	RadiusKm      float64       // ATM search radius
	Development   bool          // show raw errors on status lines
}

// Locator provides the branch list and the branch detail screens over one
// process-wide query cache, fetching payloads from the source and normalizing them.
type Locator struct {
	log        *slog.Logger       // Logger for logging service activities
	source     source.Source      // Upstream of raw payloads
	sourceName string             // Name of the source for metrics labeling
	normalizer *normalize.Normalizer
	metrics    *metrics.Metrics   // Metrics for tracking service performance
	settings   Settings
	client     *query.Client
	branches   *query.Query[[]models.Branch]
	atms       *query.Query[[]models.ATM]
}

// NewLocator creates a new instance of Locator. Extra client options are applied
// after the defaults, mostly to replace the retry backoff in tests.
func NewLocator(
	log *slog.Logger,
	src source.Source,
	sourceName string,
	metrics *metrics.Metrics,
	settings Settings,
	clientOpts ...query.ClientOption,
) *Locator {
	l := &Locator{
		log:        log,
		source:     src,
		sourceName: sourceName,
		normalizer: normalize.NewNormalizer(log, metrics),
		metrics:    metrics,
		settings:   settings,
	}

	opts := []query.ClientOption{
		query.WithLogger(log),
		query.WithMetrics(metrics),
		query.WithRetryIf(source.IsTransport),
	}
	l.client = query.NewClient(append(opts, clientOpts...)...)

	l.branches = query.NewQuery(l.client, BranchesKey, l.fetchBranches, query.Options{
		StaleTime:      settings.BranchesStale,
		Enabled:        true,
		Retry:          settings.Retry,
		RefetchOnMount: true,
		RefetchOnFocus: true,
	})
	l.atms = query.NewQuery(l.client, ATMsKey, l.fetchATMs, query.Options{
		StaleTime: settings.ATMsStale,
		GCTime:    settings.ATMsGC,
		Retry:     settings.Retry,
	})

	return l
}

// Run collects unused cache entries until ctx is cancelled.
func (l *Locator) Run(ctx context.Context) {
	l.log.InfoContext(ctx, "Locator started...", "source", l.sourceName)
	l.client.Run(ctx, l.settings.GCInterval)
	l.log.InfoContext(ctx, "Locator stopped.")
}

// RadiusKm returns the ATM search radius.
func (l *Locator) RadiusKm() float64 {
	return l.settings.RadiusKm
}

// Branches returns the cached branch list.
func (l *Locator) Branches(ctx context.Context) ([]models.Branch, error) {
	return l.branches.Fetch(ctx)
}

// Search filters the branch list the way the list screen does.
func (l *Locator) Search(ctx context.Context, text string) screen.ListResult {
	return l.BranchList(func(screen.ListResult) {}).Search(ctx, text)
}

// BranchList creates a list screen publishing to listener.
func (l *Locator) BranchList(listener func(screen.ListResult), opts ...screen.ListOption) *screen.BranchList {
	return screen.NewBranchList(l.branches, listener, append([]screen.ListOption{screen.WithListLogger(l.log)}, opts...)...)
}

// Refresh refetches the branch list.
func (l *Locator) Refresh(ctx context.Context) ([]models.Branch, error) {
	return l.branches.Refetch(ctx)
}

// Focus refetches stale observed data, as when the app returns to the foreground.
func (l *Locator) Focus(ctx context.Context) {
	l.client.Focus(ctx)
}

// OpenDetail opens the detail screen of a branch.
func (l *Locator) OpenDetail(ctx context.Context, id string, opts ...screen.DetailOption) (*screen.BranchDetail, error) {
	base := []screen.DetailOption{
		screen.WithRadius(l.settings.RadiusKm),
		screen.WithDevelopment(l.settings.Development),
		screen.WithDetailLogger(l.log),
		screen.WithDetailMetrics(l.metrics),
	}
	return screen.OpenBranchDetail(ctx, l.branches, l.atms, id, append(base, opts...)...)
}

// Detail returns the detail view of a branch with the overlay off.
func (l *Locator) Detail(ctx context.Context, id string) (screen.DetailView, error) {
	detail, err := l.OpenDetail(ctx, id)
	if err != nil {
		return screen.DetailView{}, err
	}
	defer detail.Close()

	return detail.View(), nil
}

// Nearby turns the overlay on for a branch, waits for the ATM dataset and returns the view.
// On failure the view still carries the status line.
func (l *Locator) Nearby(ctx context.Context, id string) (screen.DetailView, error) {
	detail, err := l.OpenDetail(ctx, id)
	if err != nil {
		return screen.DetailView{}, err
	}
	defer detail.Close()

	detail.SetOverlay(ctx, true)
	if _, err = detail.LoadATMs(ctx); err != nil {
		return detail.View(), fmt.Errorf("failed to load atms: %w", err)
	}

	return detail.View(), nil
}

func (l *Locator) fetchBranches(ctx context.Context) ([]models.Branch, error) {
	payload, err := l.fetch(ctx, source.Branches)
	if err != nil {
		return nil, err
	}
	return l.normalizer.Branches(ctx, payload)
}

func (l *Locator) fetchATMs(ctx context.Context) ([]models.ATM, error) {
	payload, err := l.fetch(ctx, source.ATMs)
	if err != nil {
		return nil, err
	}
	return l.normalizer.ATMs(ctx, payload)
}

// fetch calls the source and records how it went.
func (l *Locator) fetch(ctx context.Context, resource source.Resource) (any, error) {
	l.log.DebugContext(ctx, "Fetching payload", "resource", resource, "source", l.sourceName)

	startTime := time.Now()
	payload, err := l.source.Fetch(ctx, resource)
	duration := time.Since(startTime).Seconds()
	l.metrics.FetchSeconds.WithLabelValues(string(resource)).Observe(duration)

	if err != nil {
		l.log.ErrorContext(ctx, "Failed to fetch payload", "resource", resource, "error", err)
		l.metrics.FetchTotal.WithLabelValues(string(resource), "failure").Inc()
		return nil, err
	}

	l.metrics.FetchTotal.WithLabelValues(string(resource), "success").Inc()
	return payload, nil
}

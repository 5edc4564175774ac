package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/UnknownOlympus/branchmap/internal/api"
	"github.com/UnknownOlympus/branchmap/internal/config"
	"github.com/UnknownOlympus/branchmap/internal/mapview"
	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/repository"
	"github.com/UnknownOlympus/branchmap/internal/service"
	"github.com/UnknownOlympus/branchmap/internal/source"
	"github.com/UnknownOlympus/branchmap/internal/theme"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app wires the configured components together.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	dtb     *pgxpool.Pool // nil unless the source is postgres
	locator *service.Locator
}

// newApp loads the configuration and builds the locator. Logs go to logOut.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env, logOut)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	a := &app{cfg: cfg, log: logger, reg: reg, metrics: appMetrics}

	srcConfig := source.Config{
		Type:      source.Type(cfg.Source.Type),
		BaseURL:   cfg.Source.BaseURL,
		Timeout:   cfg.Source.Timeout,
		RateLimit: cfg.Source.RateLimit,
		Logger:    logger,
	}
	if srcConfig.Type == source.TypePostgres {
		dtb, err := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		a.dtb = dtb
		srcConfig.Repo = repository.NewRepository(dtb, logger)
	}

	src, err := source.NewSource(srcConfig)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	logger.InfoContext(ctx, "Source initialized", "type", cfg.Source.Type)

	a.locator = service.NewLocator(logger, src, cfg.Source.Type, appMetrics, service.Settings{
		BranchesStale: cfg.Cache.BranchesStale,
		ATMsStale:     cfg.Cache.ATMsStale,
		ATMsGC:        cfg.Cache.ATMsGC,
		Retry:         cfg.Cache.Retry,
		GCInterval:    cfg.Cache.GCInterval,
		RadiusKm:      cfg.RadiusKm,
		Development:   cfg.Env == envLocal || cfg.Env == envDev,
	})

	return a, nil
}

// server builds the HTTP API. Map snapshots are enabled only with a Google API key.
func (a *app) server(ctx context.Context) (*api.Server, error) {
	opts := []api.Option{}

	palette := theme.Default()
	if a.cfg.ThemeFile != "" {
		loaded, err := theme.Load(a.cfg.ThemeFile)
		if err != nil {
			return nil, err
		}
		palette = loaded
	}
	opts = append(opts, api.WithTheme(palette))

	if a.cfg.Google.APIKey != "" {
		client, err := mapview.NewGoogleClient(a.cfg.Google.APIKey, a.cfg.Google.RateLimit)
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithSnapshotter(mapview.NewRenderer(client, a.log, a.metrics)))
		a.log.InfoContext(ctx, "Map snapshots enabled")
	}

	if a.dtb != nil {
		opts = append(opts, api.WithHealthCheck(a.dtb.Ping))
	}

	return api.NewServer(a.log, a.locator, a.reg, opts...), nil
}

func (a *app) close() {
	if a.dtb != nil {
		a.dtb.Close()
	}
}

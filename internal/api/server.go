// Package api serves the branch list and branch detail screens as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/mapview"
	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/UnknownOlympus/branchmap/internal/theme"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Locator is the part of the locator service the API reads from.
type Locator interface {
	Search(ctx context.Context, text string) screen.ListResult
	Detail(ctx context.Context, id string) (screen.DetailView, error)
	Nearby(ctx context.Context, id string) (screen.DetailView, error)
	RadiusKm() float64
}

// Snapshotter renders a map widget as PNG.
type Snapshotter interface {
	RenderWidget(ctx context.Context, w io.Writer, widget *mapview.Widget) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server is the HTTP front of the locator.
type Server struct {
	echo     *echo.Echo
	log      *slog.Logger
	locator  Locator
	snapshot Snapshotter
	theme    theme.Theme
	health   HealthCheck
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotter enables GET /api/branches/:id/map.png.
func WithSnapshotter(s Snapshotter) Option {
	return func(srv *Server) { srv.snapshot = s }
}

// WithHealthCheck makes /healthz depend on check.
func WithHealthCheck(check HealthCheck) Option {
	return func(srv *Server) { srv.health = check }
}

// WithTheme replaces the default palette served on /api/theme.
func WithTheme(t theme.Theme) Option {
	return func(srv *Server) { srv.theme = t }
}

// NewServer builds the router. Metrics are served from gatherer.
func NewServer(log *slog.Logger, locator Locator, gatherer prometheus.Gatherer, opts ...Option) *Server {
	srv := &Server{
		echo:    echo.New(),
		log:     log,
		locator: locator,
		theme:   theme.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	e := srv.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validator: validator.New()}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(log))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.ErrorContext(c.Request().Context(), "Panic while serving request",
				"uri", c.Request().RequestURI, "error", err, "stack", string(stack))
			return err
		},
	}))

	api := e.Group("/api")
	api.GET("/branches", srv.listBranches)
	api.GET("/branches/:id", srv.branchDetail)
	api.GET("/branches/:id/atms", srv.nearbyATMs)
	api.GET("/branches/:id/map.png", srv.mapSnapshot)
	api.GET("/theme", srv.getTheme)

	e.GET("/healthz", srv.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.echo,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Starting API server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	s.log.InfoContext(ctx, "API server stopped.")

	return nil
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.WarnContext(c.Request().Context(), "Request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			log.DebugContext(c.Request().Context(), "Request served", attrs...)
			return nil
		},
	})
}

package source

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/repository"
)

// Type represents the kind of upstream a Source talks to.
type Type string

const (
	// TypeHTTP fetches JSON payloads from the remote API.
	TypeHTTP Type = "http"
	// TypePostgres reads rows from a Postgres database.
	TypePostgres Type = "postgres"
)

// Config holds configuration for creating a source.
type Config struct {
	Type      Type                 // Type of source to create
	BaseURL   string               // Base URL of the remote API (http)
	Timeout   time.Duration        // Per-request timeout (http)
	RateLimit int                  // Requests per second, 0 disables limiting (http)
	Repo      repository.Interface // Read-only repository (postgres)
	Logger    *slog.Logger         // Logger for the source
}

// NewSource creates a source based on the provided configuration.
//
// Supported source types:
// - "http": remote JSON API (requires a base URL)
// - "postgres": branches/atms tables (requires a repository)
func NewSource(config Config) (Source, error) {
	switch config.Type {
	case TypeHTTP:
		if config.BaseURL == "" {
			return nil, errors.New("base URL is required for http source")
		}
		return NewHTTPSource(config.BaseURL, config.Timeout, config.RateLimit, config.Logger), nil
	case TypePostgres:
		if config.Repo == nil {
			return nil, errors.New("repository is required for postgres source")
		}
		return NewPostgresSource(config.Repo), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Type)
	}
}

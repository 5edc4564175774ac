package source

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/branchmap/internal/repository"
)

// PostgresSource serves payloads read from the branches and atms tables.
// Rows come back in the flat record shape and go through the same normalizer as remote payloads.
type PostgresSource struct {
	repo repository.Interface
}

// NewPostgresSource wraps a repository as a Source.
func NewPostgresSource(repo repository.Interface) *PostgresSource {
	return &PostgresSource{repo: repo}
}

// Fetch reads every row of the requested table.
func (ps *PostgresSource) Fetch(ctx context.Context, resource Resource) (any, error) {
	switch resource {
	case Branches:
		return ps.repo.FetchBranches(ctx)
	case ATMs:
		return ps.repo.FetchATMs(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
}

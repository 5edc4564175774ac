package repository

import (
	"context"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Database is the subset of pgxpool.Pool the repository needs. pgxmock pools satisfy it too.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db      Database
	log     *slog.Logger
	builder sq.StatementBuilderType
}

type Interface interface {
	FetchBranches(ctx context.Context) ([]map[string]any, error)
	FetchATMs(ctx context.Context) ([]map[string]any, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{
		db:      db,
		log:     log,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/branchmap/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fetchBranchesQuery = `SELECT id, name, address, city, working_hours, lat, lon FROM branches ORDER BY id`
	fetchATMsQuery     = `SELECT id, label, lat, lon FROM atms ORDER BY id`
)

var branchColumns = []string{"id", "name", "address", "city", "working_hours", "lat", "lon"}

func ptr[T any](v T) *T { return &v }

func TestFetchBranches(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query branches", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchBranchesQuery)).WillReturnError(assert.AnError)

		branches, err := repo.FetchBranches(ctx)

		require.Nil(t, branches)
		require.ErrorContains(t, err, "failed to query branches")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan branch", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchBranchesQuery)).
			WillReturnRows(pgxmock.NewRows(branchColumns).AddRow(true, "Main", nil, nil, nil, nil, nil))

		branches, err := repo.FetchBranches(ctx)

		require.Nil(t, branches)
		require.ErrorContains(t, err, "failed to scan branch")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchBranchesQuery)).
			WillReturnRows(
				pgxmock.NewRows(branchColumns).
					AddRow("B1", "Main", nil, nil, nil, ptr(50.0), ptr(14.0)).
					RowError(1, assert.AnError),
			)

		branches, err := repo.FetchBranches(ctx)

		require.Nil(t, branches)
		require.ErrorContains(t, err, "failed to read row")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch branches", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchBranchesQuery)).
			WillReturnRows(
				pgxmock.NewRows(branchColumns).
					AddRow("B1", "Main", ptr("12 Main Street"), ptr("Prague"), ptr("Monday: 09:00-17:00"), ptr(50.0), ptr(14.0)).
					AddRow("B2", "No coords", nil, nil, nil, nil, nil),
			)

		branches, err := repo.FetchBranches(ctx)

		require.NoError(t, err)
		require.Len(t, branches, 2)
		assert.Equal(t, map[string]any{
			"id":           "B1",
			"name":         "Main",
			"address":      "12 Main Street",
			"city":         "Prague",
			"workingHours": "Monday: 09:00-17:00",
			"lat":          50.0,
			"lon":          14.0,
		}, branches[0])
		assert.Equal(t, map[string]any{"id": "B2", "name": "No coords"}, branches[1])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFetchATMs(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query atms", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchATMsQuery)).WillReturnError(assert.AnError)

		atms, err := repo.FetchATMs(ctx)

		require.Nil(t, atms)
		require.ErrorContains(t, err, "failed to query atms")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch atms", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchATMsQuery)).
			WillReturnRows(
				pgxmock.NewRows([]string{"id", "label", "lat", "lon"}).
					AddRow("A1", ptr("Lobby"), ptr(50.0), ptr(14.0)).
					AddRow("A2", nil, ptr(50.1), ptr(14.1)),
			)

		atms, err := repo.FetchATMs(ctx)

		require.NoError(t, err)
		assert.Equal(t, []map[string]any{
			{"id": "A1", "label": "Lobby", "lat": 50.0, "lon": 14.0},
			{"id": "A2", "lat": 50.1, "lon": 14.1},
		}, atms)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

package screen_test

import (
	"errors"
	"testing"

	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/query"
	"github.com/UnknownOlympus/branchmap/internal/screen"
	"github.com/stretchr/testify/assert"
)

func TestStatusLine(t *testing.T) {
	fetched := query.State[[]models.ATM]{Status: query.StatusSuccess, IsFetched: true, HasData: true}
	failed := query.State[[]models.ATM]{Status: query.StatusError, IsFetched: true, Err: errors.New("HTTP 502 from /atms: bad gateway")}

	tests := []struct {
		name    string
		overlay bool
		state   query.State[[]models.ATM]
		nearby  int
		dev     bool
		want    string
	}{
		{"overlay off", false, fetched, 3, false, ""},
		{"idle", true, query.State[[]models.ATM]{Status: query.StatusIdle}, 0, false, ""},
		{"loading", true, query.State[[]models.ATM]{Status: query.StatusLoading, IsFetching: true}, 0, false, "Checking nearby ATMs…"},
		{"refetching", true, query.State[[]models.ATM]{Status: query.StatusFetching, IsFetching: true, IsFetched: true}, 2, false, "Checking nearby ATMs…"},
		{"error", true, failed, 0, false, "Failed to load ATMs"},
		{"error in development", true, failed, 0, true, "Failed to load ATMs\nHTTP 502 from /atms: bad gateway"},
		{"empty", true, fetched, 0, false, "No ATMs within 15 km of this branch."},
		{"single", true, fetched, 1, false, "1 ATM within 15 km."},
		{"plural", true, fetched, 3, false, "3 ATMs within 15 km."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, screen.StatusLine(tt.overlay, tt.state, tt.nearby, 15, tt.dev))
		})
	}

	assert.Equal(t, "No ATMs within 2.5 km of this branch.", screen.StatusLine(true, fetched, 0, 2.5, false))
}

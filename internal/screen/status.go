package screen

import (
	"strconv"

	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/query"
)

// User-facing messages.
const (
	MsgBranchesFailed = "Failed to load branches"
	MsgATMsFailed     = "Failed to load ATMs"
	MsgCheckingATMs   = "Checking nearby ATMs…"
)

// StatusLine renders the ATM overlay status. It is empty while the overlay is off
// or before the ATM query has run. In development the raw error follows on a second line.
func StatusLine(overlay bool, st query.State[[]models.ATM], nearby int, radiusKm float64, dev bool) string {
	if !overlay {
		return ""
	}

	radius := formatNumber(radiusKm)
	switch {
	case st.IsFetching:
		return MsgCheckingATMs
	case st.Status == query.StatusError:
		if dev && st.Err != nil {
			return MsgATMsFailed + "\n" + st.Err.Error()
		}
		return MsgATMsFailed
	case !st.IsFetched:
		return ""
	case nearby == 0:
		return "No ATMs within " + radius + " km of this branch."
	case nearby == 1:
		return "1 ATM within " + radius + " km."
	default:
		return strconv.Itoa(nearby) + " ATMs within " + radius + " km."
	}
}

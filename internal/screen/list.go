package screen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/UnknownOlympus/branchmap/internal/query"
)

// DebounceDelay is how long typing has to pause before the list is filtered.
const DebounceDelay = 200 * time.Millisecond

// ListResult is what the branch list shows for a query.
type ListResult struct {
	Query    string          `json:"query"`
	Branches []models.Branch `json:"branches"`
	Err      error           `json:"-"`
	Message  string          `json:"message,omitempty"`
}

// BranchList is the searchable branch list.
type BranchList struct {
	branches *query.Query[[]models.Branch]
	listener func(ListResult)
	delay    time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	text  string
	timer *time.Timer
	seq   uint64
}

// ListOption configures a BranchList.
type ListOption func(*BranchList)

// WithDebounce overrides DebounceDelay.
func WithDebounce(delay time.Duration) ListOption {
	return func(l *BranchList) { l.delay = delay }
}

// WithListLogger sets the logger used for load failures.
func WithListLogger(log *slog.Logger) ListOption {
	return func(l *BranchList) { l.log = log }
}

// NewBranchList returns a list publishing debounced results to listener.
func NewBranchList(branches *query.Query[[]models.Branch], listener func(ListResult), opts ...ListOption) *BranchList {
	l := &BranchList{
		branches: branches,
		listener: listener,
		delay:    DebounceDelay,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Input records the search text. Once the text has been stable for the debounce
// delay the filtered list is published; earlier pending inputs are dropped.
// Cancelling ctx after Input returns does not abort the pending search.
func (l *BranchList) Input(ctx context.Context, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.text = text
	l.seq++
	seq := l.seq
	if l.timer != nil {
		l.timer.Stop()
	}
	ctx = context.WithoutCancel(ctx)
	l.timer = time.AfterFunc(l.delay, func() {
		l.mu.Lock()
		current := seq == l.seq
		l.mu.Unlock()
		if !current {
			return
		}
		l.listener(l.Search(ctx, text))
	})
}

// Search filters the cached branch list right away.
func (l *BranchList) Search(ctx context.Context, text string) ListResult {
	branches, err := l.branches.Fetch(ctx)
	return l.result(ctx, text, branches, err)
}

// Refresh refetches the branch list and publishes the result for the current text.
func (l *BranchList) Refresh(ctx context.Context) ListResult {
	l.mu.Lock()
	text := l.text
	l.mu.Unlock()

	branches, err := l.branches.Refetch(ctx)
	res := l.result(ctx, text, branches, err)
	l.listener(res)
	return res
}

// Close drops a pending debounced search.
func (l *BranchList) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if l.timer != nil {
		l.timer.Stop()
	}
}

func (l *BranchList) result(ctx context.Context, text string, branches []models.Branch, err error) ListResult {
	if err != nil {
		l.log.ErrorContext(ctx, "Failed to load branches", "error", err)
		return ListResult{Query: text, Err: err, Message: MsgBranchesFailed}
	}
	return ListResult{Query: text, Branches: Filter(branches, text)}
}

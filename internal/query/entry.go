package query

import (
	"context"
	"time"
)

// DefaultGCTime is how long an unobserved entry survives when Options.GCTime is zero.
const DefaultGCTime = 5 * time.Minute

// Options configure a single query key.
type Options struct {
	StaleTime      time.Duration // data younger than this is served without fetching
	GCTime         time.Duration // idle time before an unobserved entry is evicted
	Enabled        bool          // a disabled query never fetches
	Retry          int           // extra attempts for retryable errors
	RefetchOnMount bool          // refetch stale data when an observer subscribes
	RefetchOnFocus bool          // refetch stale data on Client.Focus
}

func (o Options) gcTime() time.Duration {
	if o.GCTime <= 0 {
		return DefaultGCTime
	}
	return o.GCTime
}

// definition is what a Query handle knows about its key: how to fetch and with which options.
type definition struct {
	fetch func(context.Context) (any, error)
	opts  Options
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

type entry struct {
	key string
	def *definition

	data        any
	hasData     bool
	err         error
	fetchedAt   time.Time
	settled     bool
	invalidated bool
	lastUsed    time.Time

	flight *flight

	observers    map[uint64]func()
	nextObserver uint64
}

func (e *entry) status() Status {
	switch {
	case e.flight != nil && e.hasData:
		return StatusFetching
	case e.flight != nil:
		return StatusLoading
	case e.err != nil:
		return StatusError
	case e.hasData:
		return StatusSuccess
	default:
		return StatusIdle
	}
}

func (e *entry) observerFuncs() []func() {
	if len(e.observers) == 0 {
		return nil
	}
	fns := make([]func(), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	return fns
}

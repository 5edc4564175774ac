package query

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by a disabled query that has nothing cached.
var ErrDisabled = errors.New("query is disabled")

// Status is the lifecycle state of a query.
type Status string

const (
	StatusIdle     Status = "idle"     // never fetched, nothing in flight
	StatusLoading  Status = "loading"  // first fetch in flight
	StatusFetching Status = "fetching" // refetch in flight, data available
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// State is a snapshot of a query.
type State[T any] struct {
	Status     Status
	Data       T
	HasData    bool
	Err        error
	FetchedAt  time.Time
	IsFetched  bool // at least one fetch has settled, successfully or not
	IsFetching bool
}

// Query is a typed handle on one cache key. Handles are cheap; several handles on
// the same key share one entry, one in-flight request and one value.
type Query[T any] struct {
	client *Client
	key    string
	def    *definition
}

// NewQuery registers fn under key. When several handles share a key, the options of
// the handle that last touched it apply.
func NewQuery[T any](client *Client, key string, fn func(context.Context) (T, error), opts Options) *Query[T] {
	def := &definition{
		fetch: func(ctx context.Context) (any, error) {
			val, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return val, nil
		},
		opts: opts,
	}

	client.mu.Lock()
	client.ensureLocked(key, def)
	client.mu.Unlock()

	return &Query[T]{client: client, key: key, def: def}
}

// Key returns the cache key.
func (q *Query[T]) Key() string {
	return q.key
}

// Fetch returns fresh data from the cache, stale data while revalidating in the
// background, or waits for the in-flight request when nothing is cached.
// A cancelled ctx abandons the wait but not the request.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	val, err := q.client.fetch(ctx, q.key, q.def, false)
	return cast[T](val), err
}

// Refetch forces a fetch, joining one already in flight, and waits for it.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	val, err := q.client.fetch(ctx, q.key, q.def, true)
	return cast[T](val), err
}

// SetEnabled gates fetching. Enabling a query without fresh data starts a background fetch.
func (q *Query[T]) SetEnabled(ctx context.Context, enabled bool) {
	c := q.client

	c.mu.Lock()
	e := c.ensureLocked(q.key, q.def)
	changed := e.def.opts.Enabled != enabled
	e.def.opts.Enabled = enabled
	notify := e.observerFuncs()
	c.mu.Unlock()

	if !changed {
		return
	}
	if enabled {
		c.background(ctx, q.key, q.def)
	}
	run(notify)
}

// Subscribe registers fn to be called with a fresh snapshot on every state change
// and returns a function that removes it. Subscribing an enabled query without data,
// or with stale data when RefetchOnMount is set, starts a background fetch.
func (q *Query[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	c := q.client

	c.mu.Lock()
	e := c.ensureLocked(q.key, q.def)
	id := e.nextObserver
	e.nextObserver++
	e.observers[id] = func() { fn(q.State()) }
	mount := !e.hasData || (e.def.opts.RefetchOnMount && c.staleLocked(e))
	c.mu.Unlock()

	if mount {
		c.background(context.Background(), q.key, q.def)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[q.key]; ok {
			delete(e.observers, id)
			e.lastUsed = c.now()
		}
	}
}

// State returns the current snapshot. An evicted or unknown key reads as idle.
func (q *Query[T]) State() State[T] {
	c := q.client
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[q.key]
	if !ok {
		return State[T]{Status: StatusIdle}
	}

	return State[T]{
		Status:     e.status(),
		Data:       cast[T](e.data),
		HasData:    e.hasData,
		Err:        e.err,
		FetchedAt:  e.fetchedAt,
		IsFetched:  e.settled,
		IsFetching: e.flight != nil,
	}
}

// Invalidate marks the cached data stale so the next read refetches.
func (q *Query[T]) Invalidate() {
	c := q.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[q.key]; ok {
		e.invalidated = true
	}
}

func cast[T any](val any) T {
	typed, _ := val.(T)
	return typed
}

// Package query is a keyed in-memory cache for remote reads. It coalesces concurrent
// requests for the same key, serves stale data while revalidating in the background,
// gates fetching on an enabled flag and evicts unobserved entries after a grace period.
package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// Client owns every cache entry of the process.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	now        func() time.Time
	log        *slog.Logger
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
	retryIf    func(error) bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for fetch and retry events.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithMetrics enables cache read and in-flight metrics.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithBackOff sets the factory for the delay policy between retries.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithRetryIf restricts retries to errors the predicate accepts. Other errors fail immediately.
func WithRetryIf(retryIf func(error) bool) ClientOption {
	return func(c *Client) { c.retryIf = retryIf }
}

// NewClient creates an empty cache.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     slog.New(slog.DiscardHandler),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		retryIf: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of live entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Focus refetches every observed, enabled entry that opted into focus refetching and is stale.
func (c *Client) Focus(ctx context.Context) {
	var notify []func()

	c.mu.Lock()
	for _, e := range c.entries {
		if len(e.observers) == 0 || !e.def.opts.Enabled || !e.def.opts.RefetchOnFocus {
			continue
		}
		if e.hasData && !c.staleLocked(e) {
			continue
		}
		c.startLocked(ctx, e)
		notify = append(notify, e.observerFuncs()...)
	}
	c.mu.Unlock()

	run(notify)
}

// GC evicts entries that have no observers, no request in flight and have not been used
// for longer than their GCTime. It returns the number of evicted entries.
func (c *Client) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if len(e.observers) > 0 || e.flight != nil {
			continue
		}
		if now.Sub(e.lastUsed) < e.def.opts.gcTime() {
			continue
		}
		delete(c.entries, key)
		evicted++
	}

	return evicted
}

// Run collects garbage every interval until ctx is cancelled.
func (c *Client) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.InfoContext(ctx, "Query cache collector started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(ctx, "Query cache collector stopped.")
			return
		case <-ticker.C:
			if evicted := c.GC(); evicted > 0 {
				c.log.DebugContext(ctx, "Evicted unused queries", "count", evicted)
			}
		}
	}
}

// fetch implements Query.Fetch and Query.Refetch for untyped values.
func (c *Client) fetch(ctx context.Context, key string, def *definition, force bool) (any, error) {
	c.mu.Lock()
	e := c.ensureLocked(key, def)
	e.lastUsed = c.now()

	if !e.def.opts.Enabled {
		data, hasData := e.data, e.hasData
		c.mu.Unlock()
		c.read(key, "disabled")
		if hasData {
			return data, nil
		}
		return nil, ErrDisabled
	}

	if !force && e.hasData && !c.staleLocked(e) {
		data := e.data
		c.mu.Unlock()
		c.read(key, "hit")
		return data, nil
	}

	started := e.flight == nil
	f := c.startLocked(ctx, e)
	data, hasData := e.data, e.hasData
	var notify []func()
	if started {
		notify = e.observerFuncs()
	}
	c.mu.Unlock()
	run(notify)

	if hasData && !force {
		c.read(key, "stale")
		return data, nil
	}
	c.read(key, "miss")

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// background starts a fetch without waiting for it, used by mount, enable and focus.
func (c *Client) background(ctx context.Context, key string, def *definition) {
	c.mu.Lock()
	e := c.ensureLocked(key, def)
	if !e.def.opts.Enabled || (e.hasData && !c.staleLocked(e)) {
		c.mu.Unlock()
		return
	}
	c.startLocked(ctx, e)
	notify := e.observerFuncs()
	c.mu.Unlock()

	run(notify)
}

// startLocked joins the entry's flight or starts a new one.
func (c *Client) startLocked(ctx context.Context, e *entry) *flight {
	if e.flight != nil {
		return e.flight
	}

	f := &flight{done: make(chan struct{})}
	e.flight = f

	fetchCtx := context.WithoutCancel(ctx)
	fn, retry, key := e.def.fetch, e.def.opts.Retry, e.key
	if c.metrics != nil {
		c.metrics.InFlight.Inc()
	}
	c.log.DebugContext(fetchCtx, "Query fetch started", "key", key, "has_data", e.hasData)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.execute(fetchCtx, key, fn, retry)
	})
	go func() {
		res := <-ch
		c.settle(fetchCtx, key, f, res)
	}()

	return f
}

// execute runs fn, retrying up to retry times on errors accepted by retryIf.
func (c *Client) execute(
	ctx context.Context,
	key string,
	fn func(context.Context) (any, error),
	retry int,
) (any, error) {
	if retry < 0 {
		retry = 0
	}
	policy := backoff.WithMaxRetries(c.newBackOff(), uint64(retry))

	operation := func() (any, error) {
		val, err := fn(ctx)
		if err != nil && !c.retryIf(err) {
			return nil, backoff.Permanent(err)
		}
		return val, err
	}

	return backoff.RetryNotifyWithData(operation, policy, func(err error, delay time.Duration) {
		c.log.WarnContext(ctx, "Retrying query fetch", "key", key, "delay", delay, "error", err)
	})
}

// settle records the flight result and wakes every waiter.
func (c *Client) settle(ctx context.Context, key string, f *flight, res singleflight.Result) {
	f.val, f.err = res.Val, res.Err

	c.mu.Lock()
	var notify []func()
	if e, ok := c.entries[key]; ok && e.flight == f {
		now := c.now()
		e.flight = nil
		e.lastUsed = now
		e.settled = true
		if res.Err != nil {
			e.err = res.Err
		} else {
			e.data, e.hasData, e.err = res.Val, true, nil
			e.fetchedAt = now
			e.invalidated = false
		}
		notify = e.observerFuncs()
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.InFlight.Dec()
	}
	if res.Err != nil {
		c.log.WarnContext(ctx, "Query fetch failed", "key", key, "error", res.Err)
	} else {
		c.log.DebugContext(ctx, "Query fetch succeeded", "key", key)
	}

	close(f.done)
	run(notify)
}

func (c *Client) ensureLocked(key string, def *definition) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, observers: make(map[uint64]func()), lastUsed: c.now()}
		c.entries[key] = e
	}
	e.def = def
	return e
}

func (c *Client) staleLocked(e *entry) bool {
	return e.invalidated || c.now().Sub(e.fetchedAt) >= e.def.opts.StaleTime
}

func (c *Client) read(key, result string) {
	if c.metrics != nil {
		c.metrics.CacheReads.WithLabelValues(key, result).Inc()
	}
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

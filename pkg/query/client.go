package query

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/observability/metrics"
	"github.com/peluware/freddy/pkg/observability/tracing"
)

// Outcome describes how a Fetch was served.
type Outcome string

// Fetch outcomes
const (
	// OutcomeHit served fresh cached data without calling the fetcher
	OutcomeHit Outcome = "hit"
	// OutcomeMiss had nothing cached and fetched
	OutcomeMiss Outcome = "miss"
	// OutcomeStale had stale or invalidated data and refetched
	OutcomeStale Outcome = "stale"
	// OutcomeShared joined a fetch already in flight for the same key
	OutcomeShared Outcome = "shared"
	// OutcomeDiscarded fetched, but the key was written meanwhile; the newer
	// cached value is returned instead of the fetched one
	OutcomeDiscarded Outcome = "discarded"
)

// Options configures a Client.
type Options struct {
	Store Store
	// StaleTime is how long fetched data is served without refetching
	StaleTime time.Duration
	// CacheTime is how long entries live in the store; zero keeps them
	CacheTime time.Duration
	// System labels cache spans, e.g. "redis"
	System string
	Logger logger.Logger
}

type entry[T any] struct {
	Data      T         `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

type fetched[T any] struct {
	data      T
	discarded bool
}

// Client caches values of type T. Concurrent fetches for one key are
// coalesced, and every write to a key bumps that key's generation so a fetch
// that started before the write cannot overwrite it. Invalidating a resource
// opens a new epoch: fetches issued afterwards never join a call that began
// before the invalidation.
type Client[T any] struct {
	store     Store
	staleTime time.Duration
	cacheTime time.Duration
	system    string
	log       logger.Logger
	group     *group[fetched[T]]
	now       func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
	invalidated map[string]time.Time
	epochs      map[string]uint64
}

// NewClient creates a Client. A nil store defaults to an InMemoryStore.
func NewClient[T any](opts Options) *Client[T] {
	store := opts.Store
	system := opts.System
	if store == nil {
		store = NewInMemoryStore()
		system = "inmemory"
	}
	return &Client[T]{
		store:       store,
		staleTime:   opts.StaleTime,
		cacheTime:   opts.CacheTime,
		system:      system,
		log:         logger.OrNop(opts.Logger),
		group:       newGroup[fetched[T]](),
		now:         time.Now,
		generations: make(map[string]uint64),
		invalidated: make(map[string]time.Time),
		epochs:      make(map[string]uint64),
	}
}

// Fetch returns fresh cached data for key, or calls fn and caches its result.
// Errors from fn are returned as is and never cached.
func (c *Client[T]) Fetch(ctx context.Context, key Key, fn func(context.Context) (T, error)) (T, Outcome, error) {
	k := key.String()
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheGet,
		tracing.WithCacheKey(k), tracing.WithCacheSystem(c.system))
	defer span.End()

	cached, found := c.load(ctx, key, k)
	if found && c.fresh(key.Resource, cached.FetchedAt) {
		c.record(span, key.Resource, OutcomeHit)
		return cached.Data, OutcomeHit, nil
	}

	outcome := OutcomeMiss
	if found {
		outcome = OutcomeStale
	}

	res, err, shared := c.group.Do(c.callKey(key.Resource, k), func() (fetched[T], error) {
		gen, startedAt := c.begin(k)
		data, err := fn(ctx)
		if err != nil {
			return fetched[T]{data: data}, err
		}
		return c.commit(ctx, key, k, gen, startedAt, data), nil
	})
	switch {
	case err != nil:
		tracing.RecordError(span, err)
		metrics.RecordCacheOutcome(key.Resource, "error")
		return res.data, outcome, err
	case shared:
		outcome = OutcomeShared
	case res.discarded:
		outcome = OutcomeDiscarded
		c.log.Debug("discarded superseded fetch", "key", k)
	}
	c.record(span, key.Resource, outcome)
	return res.data, outcome, nil
}

// Data returns the cached value for key regardless of staleness.
func (c *Client[T]) Data(ctx context.Context, key Key) (T, bool) {
	e, ok := c.load(ctx, key, key.String())
	return e.Data, ok
}

// SetData replaces the value under key with update(old). When update reports
// false nothing is written. It returns the value now cached and whether one exists.
func (c *Client[T]) SetData(ctx context.Context, key Key, update func(old T, exists bool) (T, bool)) (T, bool, error) {
	k := key.String()
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheSet,
		tracing.WithCacheKey(k), tracing.WithCacheSystem(c.system))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	old, exists := c.load(ctx, key, k)
	next, ok := update(old.Data, exists)
	if !ok {
		return old.Data, exists, nil
	}
	c.generations[k]++
	fetchedAt := old.FetchedAt
	if !exists {
		fetchedAt = c.now()
	}
	if err := c.save(ctx, k, entry[T]{Data: next, FetchedAt: fetchedAt}); err != nil {
		tracing.RecordError(span, err)
		return old.Data, exists, err
	}
	return next, true, nil
}

// Invalidate marks every key of resource stale and drops it from the store.
// Fetches already in flight still settle, but their results are not cached
// and later fetches start over instead of joining them.
func (c *Client[T]) Invalidate(ctx context.Context, resource string) error {
	prefix := ResourcePrefix(resource)
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheInvalidate,
		tracing.WithCacheKey(prefix), tracing.WithCacheSystem(c.system))
	defer span.End()

	c.mu.Lock()
	c.invalidated[resource] = c.now()
	c.epochs[resource]++
	for k := range c.generations {
		if strings.HasPrefix(k, prefix) {
			c.generations[k]++
		}
	}
	c.mu.Unlock()

	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	return nil
}

// InFlight reports whether a fetch for key issued since the last
// invalidation of its resource is running.
func (c *Client[T]) InFlight(key Key) bool {
	return c.group.InFlight(c.callKey(key.Resource, key.String()))
}

// Close closes the underlying store.
func (c *Client[T]) Close() error {
	return c.store.Close()
}

// callKey scopes coalescing of k to the current invalidation epoch of resource.
func (c *Client[T]) callKey(resource, k string) string {
	c.mu.Lock()
	epoch := c.epochs[resource]
	c.mu.Unlock()
	return k + "#" + strconv.FormatUint(epoch, 10)
}

func (c *Client[T]) begin(k string) (uint64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[k]++
	return c.generations[k], c.now()
}

// commit stores data unless the key was written after the fetch began, in
// which case the newer cached value wins.
func (c *Client[T]) commit(ctx context.Context, key Key, k string, gen uint64, startedAt time.Time, data T) fetched[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[k] != gen {
		if current, ok := c.load(ctx, key, k); ok {
			return fetched[T]{data: current.Data, discarded: true}
		}
		return fetched[T]{data: data, discarded: true}
	}
	if err := c.save(ctx, k, entry[T]{Data: data, FetchedAt: startedAt}); err != nil {
		c.log.Warn("query cache write failed", "key", k, "error", err)
	}
	return fetched[T]{data: data}
}

func (c *Client[T]) fresh(resource string, fetchedAt time.Time) bool {
	c.mu.Lock()
	invalidatedAt, wasInvalidated := c.invalidated[resource]
	c.mu.Unlock()

	if wasInvalidated && !fetchedAt.After(invalidatedAt) {
		return false
	}
	return c.now().Sub(fetchedAt) < c.staleTime
}

func (c *Client[T]) load(ctx context.Context, key Key, k string) (entry[T], bool) {
	var e entry[T]
	raw, err := c.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("query cache read failed", "key", k, "error", err)
			metrics.RecordCacheOutcome(key.Resource, "error")
		}
		return e, false
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("query cache entry is corrupt", "key", k, "error", err)
		return e, false
	}
	return e, true
}

func (c *Client[T]) save(ctx context.Context, k string, e entry[T]) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, k, raw, c.cacheTime)
}

func (c *Client[T]) record(span trace.Span, resource string, outcome Outcome) {
	tracing.SetCacheOutcome(span, string(outcome))
	tracing.RecordSuccess(span)
	metrics.RecordCacheOutcome(resource, string(outcome))
}

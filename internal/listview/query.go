package listview

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

// ListKey identifies the authoritative task list.
const ListKey = "tasks.list"

// Fetcher loads the authoritative list.
type Fetcher func(ctx context.Context) ([]models.Task, error)

// QueryCache holds authoritative lists keyed by identity. Invalidate is the
// only way their contents change.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	sf      singleflight.Group
}

type entry struct {
	fetch   Fetcher
	data    []models.Task
	loaded  bool
	started uint64 // fetches begun
	applied uint64 // sequence of the fetch whose result is in data
	subs    map[uint64]func([]models.Task)
	nextSub uint64

	delivering bool   // a goroutine is running subscribers
	delivered  uint64 // sequence last handed to subscribers
}

// NewQueryCache returns an empty cache.
func NewQueryCache() *QueryCache {
	return &QueryCache{entries: map[string]*entry{}}
}

// Register binds key to fetch. Registering again replaces the fetcher and keeps the data.
func (q *QueryCache) Register(key string, fetch Fetcher) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[key]; ok {
		e.fetch = fetch
		return
	}
	q.entries[key] = &entry{fetch: fetch, subs: map[uint64]func([]models.Task){}}
}

// Data returns a copy of the cached list.
func (q *QueryCache) Data(key string) ([]models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok || !e.loaded {
		return nil, false
	}
	return slices.Clone(e.data), true
}

// Fetch returns the cached list, loading it first if needed.
func (q *QueryCache) Fetch(ctx context.Context, key string) ([]models.Task, error) {
	if data, ok := q.Data(key); ok {
		return data, nil
	}
	return q.load(ctx, key)
}

// Invalidate refetches key and notifies subscribers. Calls that overlap an
// in-flight refetch start a new one so they observe writes made before them.
func (q *QueryCache) Invalidate(ctx context.Context, key string) error {
	q.sf.Forget(key)
	_, err := q.load(ctx, key)
	if err != nil {
		logger.Warn(ctx, "List refetch failed", "error", err, "key", key)
	}
	return err
}

// Subscribe calls fn with newly applied lists. Calls are serialized and never
// go backwards: a list applied while subscribers are running is delivered
// right after them, superseding any older one. The returned func unsubscribes.
func (q *QueryCache) Subscribe(key string, fn func([]models.Task)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok {
		e = &entry{subs: map[uint64]func([]models.Task){}}
		q.entries[key] = e
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(e.subs, id)
	}
}

func (q *QueryCache) load(ctx context.Context, key string) ([]models.Task, error) {
	v, err, _ := q.sf.Do(key, func() (interface{}, error) {
		q.mu.Lock()
		e, ok := q.entries[key]
		if !ok || e.fetch == nil {
			q.mu.Unlock()
			return nil, fmt.Errorf("listview: no fetcher registered for %q", key)
		}
		e.started++
		seq, fetch := e.started, e.fetch
		q.mu.Unlock()

		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		q.mu.Lock()
		if seq < e.applied {
			// A later fetch already landed; this result is stale.
			current := slices.Clone(e.data)
			q.mu.Unlock()
			return current, nil
		}
		e.data, e.loaded, e.applied = slices.Clone(data), true, seq
		q.deliverLocked(e)
		q.mu.Unlock()

		return slices.Clone(data), nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.Task)), nil
}

// deliverLocked hands the latest applied list to subscribers unless another
// goroutine is already doing so; that goroutine picks the newer list up before
// it returns. Called with q.mu held; returns with it held.
func (q *QueryCache) deliverLocked(e *entry) {
	if e.delivering {
		return
	}
	e.delivering = true
	for e.applied > e.delivered {
		e.delivered = e.applied
		data := slices.Clone(e.data)
		subs := make([]func([]models.Task), 0, len(e.subs))
		for _, fn := range e.subs {
			subs = append(subs, fn)
		}
		q.mu.Unlock()
		for _, fn := range subs {
			fn(slices.Clone(data))
		}
		q.mu.Lock()
	}
	e.delivering = false
}

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tag names a family of cached queries that a mutation can make stale.
type Tag string

const (
	TagTransactions Tag = "Transactions"
	TagTotals       Tag = "Totals"
	TagDescriptions Tag = "Descriptions"
	TagUsers        Tag = "Users"
)

// AllTags lists every tag, in a stable order.
func AllTags() []Tag {
	return []Tag{TagTransactions, TagTotals, TagDescriptions, TagUsers}
}

// ParseTag accepts the tag names used in invalidation messages.
func ParseTag(s string) (Tag, error) {
	switch t := Tag(s); t {
	case TagTransactions, TagTotals, TagDescriptions, TagUsers:
		return t, nil
	}
	return "", fmt.Errorf("unknown cache tag %q", s)
}

type queryEntry struct {
	value any
	tags  []Tag
}

// flight is one running load. A forgotten flight may still finish after a
// newer one for the same key has started, so entries are compared by
// identity before removal.
type flight struct {
	tags []Tag
}

// QueryCache caches read results under a key and one or more tags.
// Invalidating a tag drops every entry carrying it. Concurrent loads of the
// same key share one fetch, and a fetch that started before an invalidation
// of any of its tags returns its result without storing it.
type QueryCache struct {
	entries *LRUCache[queryEntry]
	group   singleflight.Group

	mu       sync.Mutex
	byTag    map[Tag]map[string]struct{}
	gen      map[Tag]uint64
	inflight map[string]*flight
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries:  NewLRUCache[queryEntry](maxSize, ttl),
		byTag:    make(map[Tag]map[string]struct{}),
		gen:      make(map[Tag]uint64),
		inflight: make(map[string]*flight),
	}
}

func (q *QueryCache) Get(key string) (any, bool) {
	e, ok := q.entries.Get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores value unconditionally.
func (q *QueryCache) Set(key string, value any, tags ...Tag) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.store(key, value, tags)
}

func (q *QueryCache) store(key string, value any, tags []Tag) {
	q.entries.Set(key, queryEntry{value: value, tags: tags})
	for _, t := range tags {
		keys := q.byTag[t]
		if keys == nil {
			keys = make(map[string]struct{})
			q.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate drops all entries carrying any of tags and returns how many
// were removed.
func (q *QueryCache) Invalidate(tags ...Tag) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for _, t := range tags {
		q.gen[t]++
		for key := range q.byTag[t] {
			if q.entries.Has(key) {
				q.entries.Delete(key)
				removed++
			}
		}
		delete(q.byTag, t)
		for key, f := range q.inflight {
			if slices.Contains(f.tags, t) {
				q.group.Forget(key)
			}
		}
	}
	if len(tags) > 0 {
		slog.Debug("Cache invalidated", "tags", tags, "removed", removed)
	}
	return removed
}

// Do returns the cached value for key or loads it with fetch.
func (q *QueryCache) Do(ctx context.Context, key string, tags []Tag, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := q.Get(key); ok {
		return v, nil
	}
	v, err, _ := q.group.Do(key, func() (any, error) {
		f := &flight{tags: tags}
		q.mu.Lock()
		snapshot := q.generations(tags)
		q.inflight[key] = f
		q.mu.Unlock()

		v, err := fetch(ctx)

		q.mu.Lock()
		defer q.mu.Unlock()
		if q.inflight[key] == f {
			delete(q.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		if q.unchanged(tags, snapshot) {
			q.store(key, v, tags)
		}
		return v, nil
	})
	return v, err
}

func (q *QueryCache) generations(tags []Tag) []uint64 {
	out := make([]uint64, len(tags))
	for i, t := range tags {
		out[i] = q.gen[t]
	}
	return out
}

func (q *QueryCache) unchanged(tags []Tag, snapshot []uint64) bool {
	for i, t := range tags {
		if q.gen[t] != snapshot[i] {
			return false
		}
	}
	return true
}

// CleanExpired lets a Manager prune the cache and its tag index.
func (q *QueryCache) CleanExpired() int {
	n := q.entries.CleanExpired()
	q.mu.Lock()
	defer q.mu.Unlock()
	for t, keys := range q.byTag {
		for key := range keys {
			if !q.entries.Has(key) {
				delete(keys, key)
			}
		}
		if len(keys) == 0 {
			delete(q.byTag, t)
		}
	}
	return n
}

func (q *QueryCache) Size() int {
	return q.entries.Size()
}

// Fetch is the typed form of QueryCache.Do.
func Fetch[T any](ctx context.Context, q *QueryCache, key string, tags []Tag, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := q.Do(ctx, key, tags, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %q holds %T", key, v)
	}
	return out, nil
}

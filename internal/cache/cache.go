// Package cache implements the read-through query cache behind every
// view, plus the synchronizer that applies feed events to it. The
// event feed is the primary freshness signal; a time-based backstop
// catches anything lost between reconnects.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// maxAge is the staleness backstop. An entry older than this refetches
// on next read even if no invalidation reached it.
const maxAge = 30 * time.Second

type entry struct {
	data      any
	stale     bool
	fetchedAt time.Time
}

func (e entry) fresh() bool {
	return !e.stale && time.Since(e.fetchedAt) < maxAge
}

// Cache is a keyed store with explicit staleness. Invalidation never
// blocks: it marks the entry stale and bumps the key's generation so
// an in-flight fetch started before the invalidation cannot mark the
// entry fresh again. All methods are safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
	subs    map[int]func(key string)
	nextID  int
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
		subs:    make(map[int]func(string)),
	}
}

// Peek returns whatever is cached under key, stale or not, so views
// can keep rendering the last known state while a refetch runs.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Fresh reports whether key holds a non-stale entry within the age
// backstop.
func (c *Cache) Fresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.fresh()
}

// Invalidate marks key stale without touching its data. The next Fetch
// for the key goes to the network. Idempotent.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
		c.entries[key] = e
	}
	c.gens[key]++
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// InvalidatePrefix marks every entry whose key starts with prefix
// stale. Used for list caches, where one logical collection spans one
// key per filter combination.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var hit []string
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
			c.entries[k] = e
			c.gens[k]++
			hit = append(hit, k)
		}
	}
	c.mu.Unlock()
	for _, k := range hit {
		c.notify(k)
	}
}

// Overwrite replaces the entry under key with data, fresh and
// immediately visible to readers. Idempotent for equal payloads.
func (c *Cache) Overwrite(key string, data any) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, fetchedAt: time.Now()}
	c.gens[key]++
	c.mu.Unlock()
	c.notify(key)
}

// Remove deletes the entry under key entirely. The generation bump
// keeps an in-flight fetch from resurrecting it.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// Clear drops every entry, for logout. Subscribers are not notified;
// the caller is tearing the UI down anyway.
func (c *Cache) Clear() {
	c.mu.Lock()
	for k := range c.entries {
		delete(c.entries, k)
		c.gens[k]++
	}
	c.mu.Unlock()
}

// OnChange registers a subscriber called with each key mutated by
// Invalidate, InvalidatePrefix, Overwrite or Remove. Fetch commits do
// not notify, so a subscriber may refetch from its callback without
// looping. The returned function unregisters.
func (c *Cache) OnChange(fn func(key string)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(key string) {
	c.mu.Lock()
	fns := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (c *Cache) snapshot(key string) (entry, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, c.gens[key], ok
}

// commit stores a fetch result, unless the key's generation moved
// while the fetch was in flight. A moved generation means something
// more authoritative happened (invalidate, overwrite, remove); the
// late response is then discarded rather than applied.
func (c *Cache) commit(key string, gen uint64, data any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.entries[key] = entry{data: data, fetchedAt: time.Now()}
	return true
}

// Fetch is the read-through path: a fresh entry of the right type is
// returned as-is, anything else triggers fn and commits its result
// under the generation observed before the call. The fetched value is
// returned to the caller even when the commit loses the race; the
// entry just stays stale for the next reader.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	e, gen, ok := c.snapshot(key)
	if ok && e.fresh() {
		if v, ok := e.data.(T); ok {
			return v, nil
		}
	}
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.commit(key, gen, v)
	return v, nil
}

package optimize

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/runtime"
)

// DefaultCapacity is the default artifact cache size.
const DefaultCapacity = 100

// NotCachedError reports an optimized-run request for an identity with
// no cached artifact. The caller must promote first.
type NotCachedError struct {
	Identity string
}

func (e *NotCachedError) Error() string {
	return fmt.Sprintf("no cached artifact for identity %.12s", e.Identity)
}

// IsNotCached reports whether err is a cache miss.
func IsNotCached(err error) bool {
	var nc *NotCachedError
	return errors.As(err, &nc)
}

// Cache is the bounded LRU artifact cache. One mutex guards all
// mutations, which also collapses concurrent promotion attempts for the
// same identity into a single compile-and-insert.
type Cache struct {
	capacity int

	mu    sync.Mutex
	order *list.List // front = most recently used; values are *Artifact
	items map[string]*list.Element
}

// NewCache creates a cache holding at most capacity artifacts.
// A capacity <= 0 selects DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Capacity returns the configured maximum entry count.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Promote compiles the program and inserts the artifact, evicting the
// least-recently-used entry if the cache is full. If the identity is
// already cached the existing artifact is kept and refreshed, so racing
// promotions do at most one compile.
func (c *Cache) Promote(identity string, prog *lang.Program, bound int64) *Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[identity]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*Artifact)
	}

	art := Compile(identity, prog, bound)

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[identity] = c.order.PushFront(art)

	slog.Debug("artifact promoted",
		"identity", identity,
		"folded_ops", art.FoldedOps,
		"eliminable", art.EliminableStmts,
		"cache_len", c.order.Len(),
	)
	return art
}

// Run replays the cached artifact for an identity against the context.
// Fails with NotCachedError on a miss; a hit moves the entry to the
// front of the LRU order. The returned artifact carries the reporting
// annotations for the run.
func (c *Cache) Run(identity string, ctx *runtime.Context, monitor *runtime.Monitor, bound int64) (*Artifact, error) {
	c.mu.Lock()
	el, ok := c.items[identity]
	if !ok {
		c.mu.Unlock()
		return nil, &NotCachedError{Identity: identity}
	}
	c.order.MoveToFront(el)
	art := el.Value.(*Artifact)
	c.mu.Unlock()

	// Replay outside the lock: the artifact is immutable once cached,
	// and Invalidate during a replay only affects later runs.
	if err := art.Replay(ctx, monitor, bound); err != nil {
		return art, err
	}
	return art, nil
}

// Invalidate removes the cached artifact for an identity. A miss is not
// an error; the operation is idempotent.
func (c *Cache) Invalidate(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[identity]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.items, identity)

	slog.Debug("artifact invalidated", "identity", identity)
}

// Contains reports whether an identity is cached, without touching the
// LRU order.
func (c *Cache) Contains(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[identity]
	return ok
}

// evictOldest drops the least-recently-used entry. Callers hold c.mu.
func (c *Cache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	art := el.Value.(*Artifact)
	c.order.Remove(el)
	delete(c.items, art.Identity)

	slog.Debug("artifact evicted", "identity", art.Identity)
}

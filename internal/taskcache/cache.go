// Package taskcache holds the in-memory snapshot of the user's tasks.
package taskcache

import (
	"sync"

	"todd/internal/service"
)

// Cache is a keyed, ordered snapshot of tasks tagged with a version.
// Order is the server's; the cache never reorders.
// The version increases on every change to the contents.
type Cache struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]service.Task
	version uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{items: make(map[string]service.Task)}
}

// Snapshot returns a copy of the cached tasks in server order.
func (c *Cache) Snapshot() []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]service.Task, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.items[id].Clone())
	}
	return result
}

// Get returns the cached task with the given ID.
func (c *Cache) Get(id string) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.items[id]
	if !ok {
		return service.Task{}, false
	}
	return t.Clone(), true
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Version returns the current version.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// ReplaceAll replaces the contents with tasks after a full reload.
// If tasks repeats an ID, the first position and the last payload win.
func (c *Cache) ReplaceAll(tasks []service.Task) uint64 {
	order := make([]string, 0, len(tasks))
	items := make(map[string]service.Task, len(tasks))
	for _, t := range tasks {
		if _, seen := items[t.ID]; !seen {
			order = append(order, t.ID)
		}
		items[t.ID] = t.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = order
	c.items = items
	c.version++
	return c.version
}

// Upsert inserts t, or overwrites the entry with the same ID in place.
// New entries are appended.
func (c *Cache) Upsert(t service.Task) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.items[t.ID] = t.Clone()
	c.version++
	return c.version
}

// Remove deletes the entry with the given ID.
// Removing an absent ID is a no-op and leaves the version unchanged.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.version++
	return true
}

// Invalidate clears every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.items = make(map[string]service.Task)
	c.version++
}

// Package cache holds the locally cached page of projects and applies
// optimistic mutations to it: unconfirmed writes become visible to
// readers immediately and are rolled back exactly if the backend
// rejects them.
package cache

import (
	"sync"

	"github.com/dlowans/facet/internal/project"
)

// Snapshot is a value copy of the cached page. Rollback restores a
// snapshot byte for byte, so snapshots must never alias live cache
// state.
type Snapshot struct {
	Items        []project.Project
	TotalItems   int
	StatusCounts map[project.Status]int
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{TotalItems: s.TotalItems}
	if s.Items != nil {
		out.Items = make([]project.Project, len(s.Items))
		for i := range s.Items {
			out.Items[i] = s.Items[i].Clone()
		}
	}
	if s.StatusCounts != nil {
		out.StatusCounts = make(map[project.Status]int, len(s.StatusCounts))
		for k, v := range s.StatusCounts {
			out.StatusCounts[k] = v
		}
	}
	return out
}

// Cache is the session's view of the current result page. One instance
// per session; the query coordinator replaces its contents on every
// confirmed fetch, and the optimistic updater patches it in between.
type Cache struct {
	mu   sync.RWMutex
	snap Snapshot
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Replace installs the authoritative page from a confirmed fetch,
// discarding any optimistic patches.
func (c *Cache) Replace(items []project.Project, totalItems int, counts map[project.Status]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{Items: items, TotalItems: totalItems, StatusCounts: counts}.Clone()
}

// Snapshot returns a value copy of the cached page.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}

// ApplyStatusChange moves item id to status in place and returns the
// pre-mutation snapshot. Unknown ids are a no-op patch; the snapshot is
// still returned so callers can roll back uniformly.
func (c *Cache) ApplyStatusChange(id string, status project.Status) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap.Clone()
	for i := range c.snap.Items {
		if c.snap.Items[i].ID == id {
			c.shiftCount(c.snap.Items[i].Status, status)
			c.snap.Items[i].Status = status
			break
		}
	}
	return prev
}

// ApplyCreate prepends p to the cached page and returns the
// pre-mutation snapshot.
func (c *Cache) ApplyCreate(p project.Project) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap.Clone()
	c.snap.Items = append([]project.Project{p.Clone()}, c.snap.Items...)
	c.snap.TotalItems++
	c.bumpCount(p.Status, 1)
	return prev
}

// ApplyDelete removes item id from the cached page and returns the
// pre-mutation snapshot.
func (c *Cache) ApplyDelete(id string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap.Clone()
	for i := range c.snap.Items {
		if c.snap.Items[i].ID == id {
			c.bumpCount(c.snap.Items[i].Status, -1)
			c.snap.Items = append(c.snap.Items[:i], c.snap.Items[i+1:]...)
			c.snap.TotalItems--
			break
		}
	}
	return prev
}

// StatusUpdate is one element of a batch status change.
type StatusUpdate struct {
	ID     string
	Status project.Status
}

// ApplyBatch applies every update under a single lock acquisition, so
// readers observe either none of the batch or all of it, never a
// partially applied subset. Returns the pre-mutation snapshot.
func (c *Cache) ApplyBatch(updates []StatusUpdate) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.snap.Clone()
	for _, u := range updates {
		for i := range c.snap.Items {
			if c.snap.Items[i].ID == u.ID {
				c.shiftCount(c.snap.Items[i].Status, u.Status)
				c.snap.Items[i].Status = u.Status
				break
			}
		}
	}
	return prev
}

// Rollback restores the cache to exactly the given snapshot.
func (c *Cache) Rollback(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap.Clone()
}

// shiftCount moves one item between status buckets. Counts are only
// patched when the fetch supplied them.
func (c *Cache) shiftCount(from, to project.Status) {
	c.bumpCount(from, -1)
	c.bumpCount(to, 1)
}

func (c *Cache) bumpCount(status project.Status, delta int) {
	if c.snap.StatusCounts == nil {
		return
	}
	c.snap.StatusCounts[status] += delta
}

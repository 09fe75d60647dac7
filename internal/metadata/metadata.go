// Package metadata caches the read-only reference data that populates
// the dashboard's filter selectors: known companies, artists, tags and
// drill shapes.
//
// The cache is refreshed on its own cadence, independent of the filter
// layer. Consumers must tolerate an empty cache; before the first load
// the selectors simply render their "all" option alone.
package metadata

import (
	"context"
	"sort"
	"sync"

	"github.com/dlowans/facet/internal/project"
)

// Data is one consistent view of the reference records.
type Data struct {
	Companies []project.Company `yaml:"companies"`
	Artists   []project.Artist  `yaml:"artists"`
	Tags      []project.Tag     `yaml:"tags"`
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	return Data{
		Companies: append([]project.Company(nil), d.Companies...),
		Artists:   append([]project.Artist(nil), d.Artists...),
		Tags:      append([]project.Tag(nil), d.Tags...),
	}
}

// Source supplies reference data. Implementations include the YAML
// reference file and the project store.
type Source interface {
	LoadMetadata(ctx context.Context) (Data, error)
}

// Cache holds the most recently loaded reference data.
type Cache struct {
	mu     sync.RWMutex
	data   Data
	loaded bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Set replaces the cached data. Records are sorted by name so selector
// lists render in a stable order regardless of source ordering.
func (c *Cache) Set(d Data) {
	d = d.Clone()
	sort.Slice(d.Companies, func(i, j int) bool { return d.Companies[i].Name < d.Companies[j].Name })
	sort.Slice(d.Artists, func(i, j int) bool { return d.Artists[i].Name < d.Artists[j].Name })
	sort.Slice(d.Tags, func(i, j int) bool { return d.Tags[i].Name < d.Tags[j].Name })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = d
	c.loaded = true
}

// Loaded reports whether the cache has been populated at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Companies returns the known companies. Never nil.
func (c *Cache) Companies() []project.Company {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]project.Company{}, c.data.Companies...)
}

// Artists returns the known artists. Never nil.
func (c *Cache) Artists() []project.Artist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]project.Artist{}, c.data.Artists...)
}

// Tags returns the known tags. Never nil.
func (c *Cache) Tags() []project.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]project.Tag{}, c.data.Tags...)
}

// DrillShapes returns the static drill shape list.
func (c *Cache) DrillShapes() []string {
	return append([]string{}, project.DrillShapes...)
}

// TagName resolves a tag id to its display name; falls back to the id
// itself when the cache doesn't know it yet.
func (c *Cache) TagName(id string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.data.Tags {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

package sat

import (
	"sort"
	"sync"
)

// Catalog holds the joined set of tracked objects. Elements may arrive
// from several CelesTrak groups that overlap; the entry with the newest
// epoch wins while group tags accumulate.
type Catalog struct {
	mu      sync.RWMutex
	objects map[uint64]*TrackedObject
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{objects: make(map[uint64]*TrackedObject)}
}

// AddElements merges elements fetched under the named CelesTrak group.
// Objects already present keep whichever element set has the later epoch;
// purpose and constellation tags from the group are added either way.
func (c *Catalog) AddElements(group string, elems []Element) {
	purpose := PurposeForGroup(group)
	constellation := ConstellationForGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range elems {
		obj, ok := c.objects[e.NoradID]
		if !ok {
			obj = &TrackedObject{
				NoradID:    e.NoradID,
				Name:       e.Name,
				Line1:      e.Line1,
				Line2:      e.Line2,
				Epoch:      e.Epoch,
				LaunchYear: LaunchYearFromDesignator(e.Line1),
			}
			c.objects[e.NoradID] = obj
		} else if e.Epoch.After(obj.Epoch) {
			obj.Name = e.Name
			obj.Line1 = e.Line1
			obj.Line2 = e.Line2
			obj.Epoch = e.Epoch
		}
		obj.addGroup(group)
		obj.addPurpose(purpose)
		if constellation != "" && obj.Constellation == "" {
			obj.Constellation = constellation
		}
	}
}

// ApplySatcat overlays SATCAT metadata onto the catalog. The SATCAT launch
// date replaces the designator-derived launch year when present.
func (c *Catalog) ApplySatcat(entries map[uint64]CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, obj := range c.objects {
		entry, ok := entries[id]
		if !ok {
			continue
		}
		obj.Type = entry.Type
		if y := entry.LaunchYear(); y != 0 {
			obj.LaunchYear = y
		}
		if obj.Name == "" {
			obj.Name = entry.Name
		}
	}
}

// Get returns the object with the given catalog number.
func (c *Catalog) Get(id uint64) (*TrackedObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[id]
	return obj, ok
}

// Len returns the number of objects in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Objects returns all objects ordered by catalog number. The slice is
// freshly allocated but shares the object pointers.
func (c *Catalog) Objects() []*TrackedObject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TrackedObject, 0, len(c.objects))
	for _, obj := range c.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoradID < out[j].NoradID })
	return out
}

// Filter returns the objects matching pred, ordered by catalog number.
func (c *Catalog) Filter(pred func(*TrackedObject) bool) []*TrackedObject {
	all := c.Objects()
	out := all[:0]
	for _, obj := range all {
		if pred(obj) {
			out = append(out, obj)
		}
	}
	return out
}

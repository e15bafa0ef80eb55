package overlay

import (
	"slices"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// Kind names one overlay container on the map.
type Kind string

const (
	KindTiles    Kind = "tiles"
	KindPoints   Kind = "points"
	KindPolygons Kind = "polygons"
)

// Renderer is the map surface. Replace may reorder the container as a side
// effect, so callers bring it to front afterwards.
type Renderer interface {
	Replace(kind Kind, fc *geojson.FeatureCollection)
	Remove(kind Kind)
	BringToFront(kind Kind)
}

// MemoryRenderer keeps overlay contents and their z-order in memory. The
// base tiles sit at the bottom of the stack.
type MemoryRenderer struct {
	mu    sync.RWMutex
	items map[Kind]*geojson.FeatureCollection
	order []Kind // back to front
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		items: make(map[Kind]*geojson.FeatureCollection),
		order: []Kind{KindTiles},
	}
}

// Replace swaps the container contents. A re-added container lands directly
// above the tiles, behind anything else.
func (m *MemoryRenderer) Replace(kind Kind, fc *geojson.FeatureCollection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[kind] = fc
	m.order = slices.DeleteFunc(m.order, func(k Kind) bool { return k == kind })
	m.order = slices.Insert(m.order, 1, kind)
}

func (m *MemoryRenderer) Remove(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, kind)
	m.order = slices.DeleteFunc(m.order, func(k Kind) bool { return k == kind })
}

func (m *MemoryRenderer) BringToFront(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[kind]; !ok {
		return
	}
	m.order = slices.DeleteFunc(m.order, func(k Kind) bool { return k == kind })
	m.order = append(m.order, kind)
}

// Collection returns the current contents of kind, or nil.
func (m *MemoryRenderer) Collection(kind Kind) *geojson.FeatureCollection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[kind]
}

// Order returns the z-order, back to front.
func (m *MemoryRenderer) Order() []Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

func (m *MemoryRenderer) Front() Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.order[len(m.order)-1]
}

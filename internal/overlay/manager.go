// Package overlay owns what is drawn on the map for the active layer: at most
// one point collection or one polygon collection, never both.
package overlay

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/ecomap/internal/core/observability"
	"github.com/mohammed-shakir/ecomap/internal/layers"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
)

type State string

const (
	StateNone       State = "none"
	StatePoints     State = "points"
	StateChoropleth State = "choropleth"
)

// Polygon stroke is the same for every metric.
const (
	StrokeColor = "rgba(255,255,255,0.9)"
	StrokeWidth = 1
)

// Snapshot is a read-only copy of the overlay state.
type Snapshot struct {
	State    State                      `json:"state"`
	Features *geojson.FeatureCollection `json:"features,omitempty"`
}

type Manager struct {
	mu     sync.Mutex
	r      Renderer
	state  State
	points []layers.Feature
	fc     *geojson.FeatureCollection
}

func NewManager(r Renderer) *Manager {
	return &Manager{r: r, state: StateNone}
}

// ShowPoints replaces the visible set with features and drops any polygons.
func (m *Manager) ShowPoints(features []layers.Feature) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f.GeoJSON())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(KindPolygons)
	m.r.Replace(KindPoints, fc)
	m.r.BringToFront(KindPoints)
	m.state = StatePoints
	m.points = append([]layers.Feature(nil), features...)
	m.fc = fc
	observability.IncOverlaySwap(string(KindPoints), "show")
}

// ShowChoropleth replaces the visible polygons. Each fill is computed once
// from the feature's metric and percent.
func (m *Manager) ShowChoropleth(features []layers.Feature, colorFor color.Func) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := f.GeoJSON()
		gf.Properties["fill"] = colorFor(f.Properties.Metric, f.Properties.Percent).String()
		gf.Properties["stroke"] = StrokeColor
		gf.Properties["strokeWidth"] = StrokeWidth
		fc.Append(gf)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(KindPoints)
	m.points = nil
	m.r.Replace(KindPolygons, fc)
	m.r.BringToFront(KindPolygons)
	m.state = StateChoropleth
	m.fc = fc
	observability.IncOverlaySwap(string(KindPolygons), "show")
}

// Clear removes both collections. Clearing an empty overlay is a no-op.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(KindPoints)
	m.removeLocked(KindPolygons)
	m.state = StateNone
	m.points = nil
	m.fc = nil
}

func (m *Manager) removeLocked(kind Kind) {
	if (kind == KindPoints && m.state != StatePoints) || (kind == KindPolygons && m.state != StateChoropleth) {
		return
	}
	m.r.Remove(kind)
	observability.IncOverlaySwap(string(kind), "clear")
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, Features: m.fc}
}

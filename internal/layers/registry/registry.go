// Package registry maps filter identifiers to everything needed to render
// their layer. A Registry is immutable once built.
package registry

import (
	"github.com/mohammed-shakir/ecomap/internal/layers"
	"github.com/mohammed-shakir/ecomap/internal/layers/adapt"
	"github.com/mohammed-shakir/ecomap/internal/layers/color"
)

type Entry struct {
	Filter layers.Filter
	Layer  layers.LayerType
	Mode   layers.DisplayMode
	Adapt  layers.Adaptor
	Color  color.Func
}

type Registry struct {
	byID    map[layers.FilterID]Entry
	byLayer map[layers.LayerType]Entry
	order   []layers.FilterID
}

// New builds a registry. Later entries with a duplicate filter id win.
func New(entries ...Entry) *Registry {
	r := &Registry{
		byID:    make(map[layers.FilterID]Entry, len(entries)),
		byLayer: make(map[layers.LayerType]Entry, len(entries)),
	}
	for _, e := range entries {
		if _, dup := r.byID[e.Filter.ID]; !dup {
			r.order = append(r.order, e.Filter.ID)
		}
		r.byID[e.Filter.ID] = e
		r.byLayer[e.Layer] = e
	}
	return r
}

// Default wires the five known layers with colors from enc.
func Default(enc *color.Encoder) *Registry {
	if enc == nil {
		enc = color.NewEncoder(nil)
	}
	colorFor := enc.Func()
	point := func(id layers.FilterID, label string, lt layers.LayerType) Entry {
		return Entry{
			Filter: layers.Filter{ID: id, Label: label},
			Layer:  lt,
			Mode:   layers.Points,
			Adapt:  adapt.Points(lt),
			Color:  colorFor,
		}
	}
	region := func(id layers.FilterID, label string, lt layers.LayerType) Entry {
		return Entry{
			Filter: layers.Filter{ID: id, Label: label},
			Layer:  lt,
			Mode:   layers.Choropleth,
			Adapt:  adapt.Choropleth(lt),
			Color:  colorFor,
		}
	}
	return New(
		point(layers.FilterAir, "Загрязнение воздуха", layers.Air),
		point(layers.FilterRadiation, "Уровень радиации", layers.Radiation),
		region(layers.FilterWater, "Загрязнение воды", layers.Water),
		region(layers.FilterSoil, "Загрязнение почвы", layers.Soil),
		point(layers.FilterCleanupEvents, "Субботники", layers.CleanupEvents),
	)
}

func (r *Registry) Resolve(id layers.FilterID) (Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

func (r *Registry) ByLayer(lt layers.LayerType) (Entry, bool) {
	e, ok := r.byLayer[lt]
	return e, ok
}

// Filters lists registered filters in registration order.
func (r *Registry) Filters() []layers.Filter {
	out := make([]layers.Filter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Filter)
	}
	return out
}

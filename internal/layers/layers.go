// Package layers defines the normalized feature model shared by the layer
// pipeline: filters, layer types, display modes and adapted features.
package layers

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type FilterID int

const (
	FilterAir FilterID = iota
	FilterRadiation
	FilterWater
	FilterSoil
	FilterCleanupEvents
)

// Filter is the user's dataset selection. A nil *Filter means no layer.
type Filter struct {
	ID    FilterID `json:"id"`
	Label string   `json:"label"`
}

type LayerType string

const (
	Air           LayerType = "air"
	Radiation     LayerType = "radiation"
	Water         LayerType = "water"
	Soil          LayerType = "soil"
	CleanupEvents LayerType = "cleanup-events"
)

var allLayerTypes = []LayerType{Air, Radiation, Water, Soil, CleanupEvents}

func AllLayerTypes() []LayerType {
	return append([]LayerType(nil), allLayerTypes...)
}

func ParseLayerType(s string) (LayerType, error) {
	for _, t := range allLayerTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown layer type %q", s)
}

// Path is the backend endpoint serving the raw dataset.
func (t LayerType) Path() string {
	return "/map/layer/" + string(t)
}

type DisplayMode string

const (
	Points     DisplayMode = "points"
	Choropleth DisplayMode = "choropleth"
)

// NoDataPercent and anything above it marks a region without measurements.
const NoDataPercent = 9999

func IsNoData(percent float64) bool {
	return percent >= NoDataPercent || percent != percent
}

// Properties is what the overlay shows for one feature. Fields carries the raw
// measurement values that survive into the GeoJSON output.
type Properties struct {
	Metric       string
	Percent      float64
	HintText     string
	BalloonTitle string
	BalloonBody  string
	Fields       map[string]any
}

// Feature is a normalized geometry plus properties. Geometry is always an
// orb.Point or orb.Polygon with positions ordered [lon, lat].
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties Properties
}

// GeoJSON converts the feature for rendering; style keys added later by the
// overlay land in the same properties map.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	for k, v := range f.Properties.Fields {
		gf.Properties[k] = v
	}
	gf.Properties["id"] = f.ID
	gf.Properties["hintText"] = f.Properties.HintText
	gf.Properties["balloonTitle"] = f.Properties.BalloonTitle
	gf.Properties["balloonBody"] = f.Properties.BalloonBody
	if f.Properties.Metric != "" {
		gf.Properties["metric"] = f.Properties.Metric
		gf.Properties["percent"] = f.Properties.Percent
	}
	return gf
}

type SkipReason string

const (
	SkipMalformedRecord     SkipReason = "malformed_record"
	SkipMissingID           SkipReason = "missing_id"
	SkipMissingCoordinates  SkipReason = "missing_coordinates"
	SkipMalformedGeometry   SkipReason = "malformed_geometry"
	SkipUnsupportedGeometry SkipReason = "unsupported_geometry"
	SkipEmptyGeometry       SkipReason = "empty_geometry"
)

// Skip records why one raw record produced no features.
type Skip struct {
	Index  int
	ID     string
	Reason SkipReason
	Err    error
}

func (s Skip) String() string {
	if s.Err != nil {
		return fmt.Sprintf("record %d (%s): %s: %v", s.Index, s.ID, s.Reason, s.Err)
	}
	return fmt.Sprintf("record %d (%s): %s", s.Index, s.ID, s.Reason)
}

// Result is the outcome for one raw record: features, or a skip.
type Result struct {
	Features []Feature
	Skip     *Skip
}

func Ok(fs ...Feature) Result { return Result{Features: fs} }

func Skipped(index int, id string, reason SkipReason, err error) Result {
	return Result{Skip: &Skip{Index: index, ID: id, Reason: reason, Err: err}}
}

// Adapted is the aggregate of all per-record results.
type Adapted struct {
	Features []Feature
	Skipped  []Skip
}

func Collect(results []Result) Adapted {
	out := Adapted{Features: make([]Feature, 0, len(results))}
	for _, r := range results {
		if r.Skip != nil {
			out.Skipped = append(out.Skipped, *r.Skip)
			continue
		}
		out.Features = append(out.Features, r.Features...)
	}
	return out
}

// SkipCounts groups skipped records by reason.
func (a Adapted) SkipCounts() map[SkipReason]int {
	m := make(map[SkipReason]int, len(a.Skipped))
	for _, s := range a.Skipped {
		m[s.Reason]++
	}
	return m
}

// FeatureCollection renders every feature as GeoJSON.
func (a Adapted) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range a.Features {
		fc.Append(f.GeoJSON())
	}
	return fc
}

// Adaptor converts a raw backend payload (a JSON array) into features. It
// returns an error only when the payload itself is not an array.
type Adaptor func(raw json.RawMessage) (Adapted, error)

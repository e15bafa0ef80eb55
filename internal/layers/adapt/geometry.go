package adapt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	errEmptyGeometry       = errors.New("geometry has no coordinates")
	errUnsupportedGeometry = errors.New("unsupported geometry type")
)

type envelope struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    json.RawMessage `json:"geometry"`
}

// parseGeometry decodes an embedded geometry that may arrive as an object, a
// JSON string holding the object, or a Feature wrapping either. Only Polygon
// and MultiPolygon are accepted. Positions may be numbers or numeric strings.
func parseGeometry(raw json.RawMessage) (polys []orb.Polygon, multi bool, err error) {
	b, err := unquote(raw)
	if err != nil {
		return nil, false, err
	}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, false, errEmptyGeometry
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, false, fmt.Errorf("decode geometry: %w", err)
	}
	switch strings.ToLower(env.Type) {
	case "feature":
		if len(env.Geometry) == 0 {
			return nil, false, errEmptyGeometry
		}
		return parseGeometry(env.Geometry)
	case "polygon":
		p, err := decodePolygon(b, env.Coordinates)
		if err != nil {
			return nil, false, err
		}
		return []orb.Polygon{p}, false, nil
	case "multipolygon":
		polys, err := decodeMultiPolygon(b, env.Coordinates)
		return polys, true, err
	case "":
		return nil, false, fmt.Errorf("decode geometry: missing type")
	default:
		return nil, false, fmt.Errorf("%w: %s", errUnsupportedGeometry, env.Type)
	}
}

// unquote strips up to two levels of string encoding.
func unquote(raw json.RawMessage) ([]byte, error) {
	b := bytes.TrimSpace(raw)
	for range 2 {
		if len(b) == 0 || b[0] != '"' {
			break
		}
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("decode geometry string: %w", err)
		}
		b = bytes.TrimSpace([]byte(s))
	}
	return b, nil
}

func decodePolygon(doc []byte, coords json.RawMessage) (orb.Polygon, error) {
	if g, err := geojson.UnmarshalGeometry(doc); err == nil {
		if p, ok := g.Geometry().(orb.Polygon); ok {
			return p, nil
		}
	}
	var lenient [][][]strictNum
	if err := json.Unmarshal(coords, &lenient); err != nil {
		return nil, fmt.Errorf("decode polygon coordinates: %w", err)
	}
	return toPolygon(lenient)
}

func decodeMultiPolygon(doc []byte, coords json.RawMessage) ([]orb.Polygon, error) {
	if g, err := geojson.UnmarshalGeometry(doc); err == nil {
		if mp, ok := g.Geometry().(orb.MultiPolygon); ok {
			return []orb.Polygon(mp), nil
		}
	}
	var lenient [][][][]strictNum
	if err := json.Unmarshal(coords, &lenient); err != nil {
		return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
	}
	out := make([]orb.Polygon, 0, len(lenient))
	for i, rings := range lenient {
		p, err := toPolygon(rings)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func toPolygon(rings [][][]strictNum) (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for j, pos := range ring {
			if len(pos) < 2 {
				return nil, fmt.Errorf("ring %d position %d: need 2 values, got %d", i, j, len(pos))
			}
			r = append(r, orb.Point{float64(pos[0]), float64(pos[1])})
		}
		p = append(p, r)
	}
	return p, nil
}

// normalizePolygon closes open rings and drops rings with fewer than three
// distinct positions. A polygon whose outer ring is dropped comes back empty.
func normalizePolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		if len(r) > 0 && !r.Closed() {
			r = append(append(orb.Ring(nil), r...), r[0])
		}
		if len(r) < 4 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

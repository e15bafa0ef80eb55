package overlay

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// SplitZoom is the zoom from which every point is shown on its own.
const SplitZoom = 16

// Cluster groups the points that fall into one H3 cell at the current zoom.
// A cluster with one member is a plain marker and carries its balloon.
type Cluster struct {
	Cell         string    `json:"cell,omitempty"`
	Center       orb.Point `json:"center"`
	Count        int       `json:"count"`
	FeatureIDs   []string  `json:"featureIds"`
	HintText     string    `json:"hintText"`
	BalloonTitle string    `json:"balloonTitle,omitempty"`
	BalloonBody  string    `json:"balloonBody,omitempty"`
}

// Resolution maps a map zoom level to an H3 resolution, capped at maxRes.
func Resolution(zoom, maxRes int) int {
	res := zoom / 2
	if res < 0 {
		res = 0
	}
	if maxRes >= 0 && res > maxRes {
		res = maxRes
	}
	if res > 15 {
		res = 15
	}
	return res
}

// Clusters groups the displayed points for zoom. It returns nil unless points
// are shown.
func (m *Manager) Clusters(zoom, maxRes int) ([]Cluster, error) {
	m.mu.Lock()
	pts := m.points
	m.mu.Unlock()
	if len(pts) == 0 {
		return nil, nil
	}
	if zoom >= SplitZoom {
		out := make([]Cluster, 0, len(pts))
		for _, f := range pts {
			out = append(out, single(f))
		}
		return out, nil
	}
	return clusterPoints(pts, Resolution(zoom, maxRes))
}

func clusterPoints(pts []layers.Feature, res int) ([]Cluster, error) {
	type acc struct {
		members []layers.Feature
		sum     orb.Point
	}
	byCell := make(map[h3.Cell]*acc)
	for _, f := range pts {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat(), Lng: p.Lon()}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for %s: %w", f.ID, err)
		}
		a := byCell[cell]
		if a == nil {
			a = &acc{}
			byCell[cell] = a
		}
		a.members = append(a.members, f)
		a.sum[0] += p[0]
		a.sum[1] += p[1]
	}

	out := make([]Cluster, 0, len(byCell))
	for cell, a := range byCell {
		if len(a.members) == 1 {
			c := single(a.members[0])
			c.Cell = cell.String()
			out = append(out, c)
			continue
		}
		n := float64(len(a.members))
		ids := make([]string, 0, len(a.members))
		for _, f := range a.members {
			ids = append(ids, f.ID)
		}
		sort.Strings(ids)
		out = append(out, Cluster{
			Cell:       cell.String(),
			Center:     orb.Point{a.sum[0] / n, a.sum[1] / n},
			Count:      len(a.members),
			FeatureIDs: ids,
			HintText:   fmt.Sprintf("Объектов: %d", len(a.members)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FeatureIDs[0] < out[j].FeatureIDs[0]
	})
	return out, nil
}

func single(f layers.Feature) Cluster {
	p, _ := f.Geometry.(orb.Point)
	return Cluster{
		Center:       p,
		Count:        1,
		FeatureIDs:   []string{f.ID},
		HintText:     f.Properties.HintText,
		BalloonTitle: f.Properties.BalloonTitle,
		BalloonBody:  f.Properties.BalloonBody,
	}
}

package adapt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// regionRaw is the common shape of choropleth records. Each layer reads its
// own metric field through a regionAccessor.
type regionRaw struct {
	RegionID                       flexID          `json:"regionId"`
	RegionName                     string          `json:"regionName"`
	GeoJSON                        json.RawMessage `json:"geoJson"`
	DirtySurfaceWaterPercent       num             `json:"dirtySurfaceWaterPercent"`
	ChronicSoilPollutionPercent    num             `json:"chronicSoilPollutionPercent"`
	LandDegradationNeutralityIndex num             `json:"landDegradationNeutralityIndex"`
}

type regionValues struct {
	percent num
	rows    []balloonRow
	fields  map[string]any
}

type regionAccessor func(r regionRaw) regionValues

var regionAccessors = map[layers.LayerType]regionAccessor{
	layers.Water: func(r regionRaw) regionValues {
		return regionValues{
			percent: r.DirtySurfaceWaterPercent,
			rows:    []balloonRow{{"Загрязнённые поверхностные воды", noDataAware(r.DirtySurfaceWaterPercent), "%"}},
			fields:  map[string]any{"dirtySurfaceWaterPercent": numField(r.DirtySurfaceWaterPercent)},
		}
	},
	layers.Soil: func(r regionRaw) regionValues {
		return regionValues{
			percent: r.ChronicSoilPollutionPercent,
			rows: []balloonRow{
				{"Хроническое загрязнение почв", noDataAware(r.ChronicSoilPollutionPercent), "%"},
				{"Индекс нейтральности деградации земель", r.LandDegradationNeutralityIndex, ""},
			},
			fields: map[string]any{
				"chronicSoilPollutionPercent":    numField(r.ChronicSoilPollutionPercent),
				"landDegradationNeutralityIndex": numField(r.LandDegradationNeutralityIndex),
			},
		}
	},
}

// Choropleth returns the polygon adaptor for layer, or nil when layer is not
// a choropleth layer. The layer type doubles as the metric name.
func Choropleth(layer layers.LayerType) layers.Adaptor {
	acc, ok := regionAccessors[layer]
	if !ok {
		return nil
	}
	metric := string(layer)
	return func(raw json.RawMessage) (layers.Adapted, error) {
		items, err := splitArray(raw)
		if err != nil {
			return layers.Adapted{}, err
		}
		results := make([]layers.Result, 0, len(items))
		for i, it := range items {
			results = append(results, regionResult(i, it, metric, acc))
		}
		return layers.Collect(results), nil
	}
}

func regionResult(i int, raw json.RawMessage, metric string, acc regionAccessor) layers.Result {
	var r regionRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return layers.Skipped(i, "", layers.SkipMalformedRecord, err)
	}
	id := string(r.RegionID)
	if id == "" {
		return layers.Skipped(i, "", layers.SkipMissingID, nil)
	}
	polys, multi, err := parseGeometry(r.GeoJSON)
	switch {
	case errors.Is(err, errEmptyGeometry):
		return layers.Skipped(i, id, layers.SkipEmptyGeometry, nil)
	case errors.Is(err, errUnsupportedGeometry):
		return layers.Skipped(i, id, layers.SkipUnsupportedGeometry, err)
	case err != nil:
		return layers.Skipped(i, id, layers.SkipMalformedGeometry, err)
	}

	vals := acc(r)
	props := regionProperties(r, metric, vals)

	features := make([]layers.Feature, 0, len(polys))
	for idx, p := range polys {
		p = normalizePolygon(p)
		if len(p) == 0 {
			continue
		}
		fid := id
		if multi {
			fid = id + "-" + strconv.Itoa(idx)
		}
		features = append(features, layers.Feature{ID: fid, Geometry: p, Properties: props.clone()})
	}
	if len(features) == 0 {
		return layers.Skipped(i, id, layers.SkipEmptyGeometry, fmt.Errorf("%d polygons, none usable", len(polys)))
	}
	return layers.Ok(features...)
}

type regionProps layers.Properties

func (p regionProps) clone() layers.Properties {
	out := layers.Properties(p)
	out.Fields = make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		out.Fields[k] = v
	}
	return out
}

func regionProperties(r regionRaw, metric string, vals regionValues) regionProps {
	percent := float64(layers.NoDataPercent)
	if vals.percent.Valid {
		percent = vals.percent.V
	}
	name := r.RegionName
	if name == "" {
		name = string(r.RegionID)
	}
	hint := name + ": нет данных"
	if !layers.IsNoData(percent) {
		hint = fmt.Sprintf("%s: %s%%", name, strconv.FormatFloat(percent, 'f', -1, 64))
	}
	fields := map[string]any{
		"layer":      metric,
		"regionId":   string(r.RegionID),
		"regionName": r.RegionName,
	}
	for k, v := range vals.fields {
		fields[k] = v
	}
	return regionProps{
		Metric:       metric,
		Percent:      percent,
		HintText:     hint,
		BalloonTitle: name,
		BalloonBody:  renderRows(vals.rows),
		Fields:       fields,
	}
}

// noDataAware hides the sentinel so balloons show a placeholder instead of 9999.
func noDataAware(n num) num {
	if n.Valid && layers.IsNoData(n.V) {
		return num{}
	}
	return n
}

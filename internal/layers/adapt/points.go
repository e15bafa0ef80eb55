package adapt

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// pointRecord is what a per-layer accessor extracts from one raw record.
type pointRecord struct {
	id       string
	lon, lat num
	props    layers.Properties
}

// accessor decodes one raw record of a specific layer type. Field names,
// nesting and lat/lon order differ per endpoint and live only here.
type accessor func(raw json.RawMessage) (pointRecord, error)

var pointAccessors = map[layers.LayerType]accessor{
	layers.Air:           airAccessor,
	layers.Radiation:     radiationAccessor,
	layers.CleanupEvents: cleanupAccessor,
}

// Points returns the point adaptor for layer, or nil when layer is not a
// point layer.
func Points(layer layers.LayerType) layers.Adaptor {
	acc, ok := pointAccessors[layer]
	if !ok {
		return nil
	}
	return func(raw json.RawMessage) (layers.Adapted, error) {
		return adaptPoints(raw, acc)
	}
}

func adaptPoints(raw json.RawMessage, acc accessor) (layers.Adapted, error) {
	items, err := splitArray(raw)
	if err != nil {
		return layers.Adapted{}, err
	}
	results := make([]layers.Result, 0, len(items))
	for i, it := range items {
		results = append(results, pointResult(i, it, acc))
	}
	return layers.Collect(results), nil
}

func pointResult(i int, raw json.RawMessage, acc accessor) layers.Result {
	rec, err := acc(raw)
	if err != nil {
		return layers.Skipped(i, rec.id, layers.SkipMalformedRecord, err)
	}
	if rec.id == "" {
		return layers.Skipped(i, "", layers.SkipMissingID, nil)
	}
	if !rec.lon.Valid || !rec.lat.Valid || !validLonLat(rec.lon.V, rec.lat.V) {
		return layers.Skipped(i, rec.id, layers.SkipMissingCoordinates,
			fmt.Errorf("lon=%s lat=%s", formatNum(rec.lon), formatNum(rec.lat)))
	}
	return layers.Ok(layers.Feature{
		ID:         rec.id,
		Geometry:   orb.Point{rec.lon.V, rec.lat.V},
		Properties: rec.props,
	})
}

type airRaw struct {
	ID         flexID `json:"id"`
	Name       string `json:"name"`
	PM25       num    `json:"pm25"`
	PM10       num    `json:"pm10"`
	NO2        num    `json:"no2"`
	SO2        num    `json:"so2"`
	CO         num    `json:"co"`
	O3         num    `json:"o3"`
	MeasuredAt string `json:"measuredAt"`
	// key casing varies between backend revisions; encoding/json matches
	// "CoordinatesResponseDto" and "coordinatesResponseDto" alike
	Coordinates *struct {
		Lat num `json:"lat"`
		Lon num `json:"lon"`
	} `json:"coordinatesResponseDto"`
}

func airAccessor(raw json.RawMessage) (pointRecord, error) {
	var r airRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return pointRecord{}, fmt.Errorf("decode air record: %w", err)
	}
	rec := pointRecord{id: string(r.ID)}
	if r.Coordinates != nil {
		rec.lat, rec.lon = r.Coordinates.Lat, r.Coordinates.Lon
	}
	title := r.Name
	if title == "" {
		title = "Пост наблюдения"
	}
	rows := []balloonRow{
		{"PM2.5", r.PM25, "мкг/м³"},
		{"PM10", r.PM10, "мкг/м³"},
		{"NO₂", r.NO2, "мкг/м³"},
		{"SO₂", r.SO2, "мкг/м³"},
		{"CO", r.CO, "мг/м³"},
		{"O₃", r.O3, "мкг/м³"},
	}
	body := renderRows(rows)
	if r.MeasuredAt != "" {
		body += line("Время измерения", r.MeasuredAt)
	}
	rec.props = layers.Properties{
		HintText:     fmt.Sprintf("%s: PM2.5 %s", title, formatNum(r.PM25)),
		BalloonTitle: title,
		BalloonBody:  body,
		Fields: map[string]any{
			"layer": string(layers.Air),
			"name":  r.Name,
			"pm25":  numField(r.PM25),
			"pm10":  numField(r.PM10),
			"no2":   numField(r.NO2),
			"so2":   numField(r.SO2),
			"co":    numField(r.CO),
			"o3":    numField(r.O3),
		},
	}
	return rec, nil
}

type radiationRaw struct {
	ID          flexID `json:"id"`
	PointID     flexID `json:"pointId"`
	Name        string `json:"name"`
	BetaFallout num    `json:"betaFallout"`
	// stored as [lat, lon]
	Coordinates []num `json:"coordinates"`
}

func radiationAccessor(raw json.RawMessage) (pointRecord, error) {
	var r radiationRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return pointRecord{}, fmt.Errorf("decode radiation record: %w", err)
	}
	rec := pointRecord{id: string(r.ID)}
	if rec.id == "" {
		rec.id = string(r.PointID)
	}
	if len(r.Coordinates) >= 2 {
		rec.lat, rec.lon = r.Coordinates[0], r.Coordinates[1]
	}
	title := r.Name
	if title == "" {
		title = "Точка контроля радиации"
	}
	body := renderRows([]balloonRow{{"Бета-выпадения", r.BetaFallout, "Бк/м²·сут"}})
	if r.PointID != "" {
		body += line("Точка", string(r.PointID))
	}
	rec.props = layers.Properties{
		HintText:     fmt.Sprintf("%s: %s", title, formatNum(r.BetaFallout)),
		BalloonTitle: title,
		BalloonBody:  body,
		Fields: map[string]any{
			"layer":       string(layers.Radiation),
			"pointId":     string(r.PointID),
			"betaFallout": numField(r.BetaFallout),
		},
	}
	return rec, nil
}

type cleanupRaw struct {
	ID                   flexID `json:"id"`
	Location             string `json:"location"`
	CityID               flexID `json:"cityId"`
	CityName             string `json:"cityName"`
	Date                 string `json:"date"`
	Organizer            string `json:"organizer"`
	Description          string `json:"description"`
	ParticipantsExpected num    `json:"participantsExpected"`
	Coordinates          *struct {
		Latitude  num `json:"latitude"`
		Longitude num `json:"longitude"`
	} `json:"coordinates"`
}

func cleanupAccessor(raw json.RawMessage) (pointRecord, error) {
	var r cleanupRaw
	if err := json.Unmarshal(raw, &r); err != nil {
		return pointRecord{}, fmt.Errorf("decode cleanup event: %w", err)
	}
	rec := pointRecord{id: string(r.ID)}
	if r.Coordinates != nil {
		rec.lat, rec.lon = r.Coordinates.Latitude, r.Coordinates.Longitude
	}
	title := r.Location
	if title == "" {
		title = "Субботник"
	}
	body := line("Город", orPlaceholder(r.CityName)) +
		line("Дата", orPlaceholder(r.Date)) +
		line("Организатор", orPlaceholder(r.Organizer)) +
		line("Ожидаемые участники", formatNum(r.ParticipantsExpected))
	if r.Description != "" {
		body += paragraph(r.Description)
	}
	rec.props = layers.Properties{
		HintText:     fmt.Sprintf("%s, %s", title, orPlaceholder(r.Date)),
		BalloonTitle: title,
		BalloonBody:  body,
		Fields: map[string]any{
			"layer":                string(layers.CleanupEvents),
			"cityId":               string(r.CityID),
			"date":                 r.Date,
			"organizer":            r.Organizer,
			"participantsExpected": numField(r.ParticipantsExpected),
		},
	}
	return rec, nil
}

func numField(n num) any {
	if !n.Valid {
		return nil
	}
	return n.V
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

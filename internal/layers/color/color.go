// Package color maps percent metrics to overlay fill colors.
package color

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mohammed-shakir/ecomap/internal/layers"
)

// RGBA is an 8-bit color with a fractional alpha, rendered as a CSS rgba().
type RGBA struct {
	R, G, B uint8
	A       float64
}

func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

func (c RGBA) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Func maps a metric name and percent to a fill color.
type Func func(metric string, percent float64) RGBA

// NoData is returned for the missing-measurement sentinel, whatever the metric.
var NoData = RGBA{R: 158, G: 158, B: 158, A: 0.5}

// Ramp is a two-stop linear interpolation over RGB and alpha.
type Ramp struct {
	From RGBA
	To   RGBA
}

func (r Ramp) At(t float64) RGBA {
	return RGBA{
		R: lerp8(r.From.R, r.To.R, t),
		G: lerp8(r.From.G, r.To.G, t),
		B: lerp8(r.From.B, r.To.B, t),
		A: math.Round((r.From.A+(r.To.A-r.From.A)*t)*1000) / 1000,
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// DefaultRamps covers the known choropleth metrics.
func DefaultRamps() map[string]Ramp {
	return map[string]Ramp{
		string(layers.Water): {
			From: RGBA{R: 224, G: 247, B: 250, A: 0.25},
			To:   RGBA{R: 1, G: 87, B: 155, A: 0.85},
		},
		string(layers.Soil): {
			From: RGBA{R: 210, G: 180, B: 140, A: 0.25},
			To:   RGBA{R: 139, G: 37, B: 0, A: 0.85},
		},
	}
}

// fallback is used for metrics without a ramp: red rises, green falls, blue
// stays fixed.
func fallback(t float64) RGBA {
	return RGBA{
		R: uint8(math.Round(255 * t)),
		G: uint8(math.Round(255 * (1 - t))),
		B: 60,
		A: math.Round((0.3+0.5*t)*1000) / 1000,
	}
}

// Normalize clamps percent into [0,100] and scales it to [0,1]. NaN maps to 0.
func Normalize(percent float64) float64 {
	switch {
	case math.IsNaN(percent), percent <= 0:
		return 0
	case percent >= 100:
		return 1
	}
	return percent / 100
}

// Encoder resolves colors from a fixed set of ramps.
type Encoder struct {
	ramps map[string]Ramp
}

// NewEncoder copies ramps; nil means DefaultRamps.
func NewEncoder(ramps map[string]Ramp) *Encoder {
	if ramps == nil {
		ramps = DefaultRamps()
	}
	cp := make(map[string]Ramp, len(ramps))
	for k, v := range ramps {
		cp[k] = v
	}
	return &Encoder{ramps: cp}
}

func (e *Encoder) ColorFor(metric string, percent float64) RGBA {
	if layers.IsNoData(percent) {
		return NoData
	}
	t := Normalize(percent)
	if r, ok := e.ramps[metric]; ok {
		return r.At(t)
	}
	return fallback(t)
}

// Func exposes ColorFor as a plain function value.
func (e *Encoder) Func() Func { return e.ColorFor }

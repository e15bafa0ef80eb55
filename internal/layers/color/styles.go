package color

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// stylesFile is the YAML layout of LAYER_STYLES_FILE:
//
//	ramps:
//	  water:
//	    from: "rgba(224,247,250,0.25)"
//	    to:   "rgba(1,87,155,0.85)"
type stylesFile struct {
	Ramps map[string]struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"ramps"`
}

// LoadRamps reads ramp overrides from path and merges them over DefaultRamps.
// An empty path returns the defaults.
func LoadRamps(path string) (map[string]Ramp, error) {
	ramps := DefaultRamps()
	if path == "" {
		return ramps, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layer styles: %w", err)
	}
	return ParseRamps(b, ramps)
}

// ParseRamps merges YAML ramp overrides into base.
func ParseRamps(doc []byte, base map[string]Ramp) (map[string]Ramp, error) {
	var f stylesFile
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse layer styles: %w", err)
	}
	out := make(map[string]Ramp, len(base)+len(f.Ramps))
	for k, v := range base {
		out[k] = v
	}
	for metric, r := range f.Ramps {
		from, err := ParseRGBA(r.From)
		if err != nil {
			return nil, fmt.Errorf("ramp %s from: %w", metric, err)
		}
		to, err := ParseRGBA(r.To)
		if err != nil {
			return nil, fmt.Errorf("ramp %s to: %w", metric, err)
		}
		out[metric] = Ramp{From: from, To: to}
	}
	return out, nil
}

var rgbaRe = regexp.MustCompile(`^\s*rgba\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*([0-9.]+)\s*\)\s*$`)

// ParseRGBA parses "rgba(r,g,b,a)".
func ParseRGBA(s string) (RGBA, error) {
	m := rgbaRe.FindStringSubmatch(s)
	if m == nil {
		return RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	var ch [3]uint8
	for i := range 3 {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 255 {
			return RGBA{}, fmt.Errorf("invalid channel %q in %q", m[i+1], s)
		}
		ch[i] = uint8(v)
	}
	a, err := strconv.ParseFloat(m[4], 64)
	if err != nil || a < 0 || a > 1 {
		return RGBA{}, fmt.Errorf("invalid alpha %q in %q", m[4], s)
	}
	return RGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, nil
}

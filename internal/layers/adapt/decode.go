// Package adapt converts raw backend layer payloads into normalized features.
// Adaptors are pure: no I/O, no shared state, deterministic for a given input.
package adapt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotArray means the caller passed something that is not a JSON array.
var ErrNotArray = errors.New("layer payload is not a JSON array")

func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	trim := bytes.TrimSpace(raw)
	if len(trim) == 0 || trim[0] != '[' {
		return nil, ErrNotArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trim, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	return items, nil
}

// flexID accepts string or numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("id must be string or number, got %s", string(b))
}

// num is a finite float that may arrive as a JSON number or a numeric string.
// Valid is false for null, absent or unparsable values.
type num struct {
	V     float64
	Valid bool
}

func (n *num) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = num{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
		if err != nil {
			return nil
		}
		f = v
	} else if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = num{V: f, Valid: true}
	return nil
}

// strictNum is like num but fails the decode on garbage; used for geometry
// positions where a bad value means the geometry is malformed.
type strictNum float64

func (n *strictNum) UnmarshalJSON(b []byte) error {
	var v num
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	if !v.Valid {
		return fmt.Errorf("coordinate %s is not a finite number", string(b))
	}
	*n = strictNum(v.V)
	return nil
}

func validLonLat(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func formatNum(n num) string {
	if !n.Valid {
		return placeholder
	}
	return strconv.FormatFloat(n.V, 'f', -1, 64)
}

// placeholder stands in for a missing measurement in hints and balloons.
const placeholder = "—"

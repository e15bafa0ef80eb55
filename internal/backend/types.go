package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an identifier the backend may send as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RegionDetail is GET /regions/{id}. Nested datasets are passed through as-is.
type RegionDetail struct {
	ID             ID              `json:"id"`
	Name           string          `json:"name"`
	Center         *LatLon         `json:"center,omitempty"`
	SoilData       json.RawMessage `json:"soilData,omitempty"`
	WaterData      json.RawMessage `json:"waterData,omitempty"`
	NatureReserves json.RawMessage `json:"natureReserves,omitempty"`
}

// Region is one entry of GET /regions.
type Region struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

const (
	ResultCity   = "city"
	ResultRegion = "region"
)

// SearchResult is one suggestion from GET /search.
type SearchResult struct {
	ID   ID      `json:"id"`
	Name string  `json:"name"`
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (r SearchResult) IsRegion() bool { return strings.EqualFold(r.Type, ResultRegion) }

type FavoriteRegion struct {
	ID       ID     `json:"id"`
	RegionID ID     `json:"regionId,omitempty"`
	Name     string `json:"name"`
}

// FavoritesPage mirrors the paged response of GET /favorite-regions.
type FavoritesPage struct {
	Content          []FavoriteRegion `json:"content"`
	Number           int              `json:"number"`
	Size             int              `json:"size"`
	TotalElements    int              `json:"totalElements"`
	TotalPages       int              `json:"totalPages"`
	NumberOfElements int              `json:"numberOfElements"`
	First            bool             `json:"first"`
	Last             bool             `json:"last"`
	Empty            bool             `json:"empty"`
}

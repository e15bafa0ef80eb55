// Package invalidation models the dataset-changed events published when an
// administrator edits a layer's records.
package invalidation

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/ecomap/internal/layers"
)

const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Event struct {
	Version  int       `json:"version"`
	Op       string    `json:"op"`
	Layer    string    `json:"layer"`
	TS       time.Time `json:"ts"`
	RecordID any       `json:"record_id,omitempty"`
	Source   string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if e.Layer == "" {
		return errors.New("layer is required")
	}
	if _, err := layers.ParseLayerType(e.Layer); err != nil {
		return err
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// LayerType returns the validated layer. Call Validate first.
func (e Event) LayerType() layers.LayerType {
	lt, _ := layers.ParseLayerType(e.Layer)
	return lt
}

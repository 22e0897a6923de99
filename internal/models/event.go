package models

import (
	"strconv"
	"time"
)

type CutoffEventKind string

const (
	// EventPickingCutoff is emitted when a picking moves to a location with
	// a different cutoff.
	EventPickingCutoff CutoffEventKind = "picking.cutoff_changed"
	// EventWarehouseCutoff is emitted when a warehouse changes its cutoff.
	EventWarehouseCutoff CutoffEventKind = "warehouse.cutoff_changed"
)

// CutoffEvent is published to Kafka whenever stored cutoff text changes.
type CutoffEvent struct {
	Kind        CutoffEventKind `json:"kind"`
	PickingID   int64           `json:"picking_id,omitempty"`
	LocationID  int64           `json:"location_id,omitempty"`
	WarehouseID int64           `json:"warehouse_id,omitempty"`
	OldCutoff   string          `json:"old_cutoff"`
	NewCutoff   string          `json:"new_cutoff"`
	// Pickings is the number of pickings rewritten by a warehouse change.
	Pickings   int64     `json:"pickings,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key partitions events so that changes of one picking, or of one
// warehouse, stay ordered.
func (e CutoffEvent) Key() string {
	if e.Kind == EventWarehouseCutoff {
		return "warehouse-" + strconv.FormatInt(e.WarehouseID, 10)
	}
	return "picking-" + strconv.FormatInt(e.PickingID, 10)
}

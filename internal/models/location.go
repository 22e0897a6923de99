package models

// Location is a stock location. Only view locations of a warehouse carry
// WarehouseID; nested locations inherit it through ParentID.
type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	WarehouseID *int64 `json:"warehouse_id,omitempty"`
}

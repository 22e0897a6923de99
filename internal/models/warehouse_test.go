package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidCutoff(t *testing.T) {
	for raw, want := range map[string]bool{
		"0":      true,
		"14.5":   true,
		"23.99":  true,
		"23.991": true,
		"23.992": false,
		"24":     false,
		"-0.5":   false,
	} {
		assert.Equal(t, want, ValidCutoff(decimal.RequireFromString(raw)), raw)
	}
}

func TestFloatToTimeRepr(t *testing.T) {
	assert.Equal(t, "14:30", FloatToTimeRepr(decimal.RequireFromString("14.5")))
	assert.Equal(t, "08:00", FloatToTimeRepr(decimal.RequireFromString("7.9999")))
	assert.Equal(t, "23:59", FloatToTimeRepr(decimal.RequireFromString("23.99")))
}

func TestCutoffEventKey(t *testing.T) {
	assert.Equal(t, "picking-7", CutoffEvent{Kind: EventPickingCutoff, PickingID: 7, WarehouseID: 2}.Key())
	assert.Equal(t, "warehouse-2", CutoffEvent{Kind: EventWarehouseCutoff, PickingID: 7, WarehouseID: 2}.Key())
}

package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Warehouse carries the daily order cutoff as fractional hours (14.5 is 14:30).
type Warehouse struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CutoffTime decimal.Decimal `json:"cutoff_time"`
}

var hoursPerDay = decimal.NewFromInt(24)

// ValidCutoff reports whether v is a time of day in [0, 24) that stays
// before midnight once rounded to the minute.
func ValidCutoff(v decimal.Decimal) bool {
	if v.IsNegative() || !v.LessThan(hoursPerDay) {
		return false
	}
	hour, _ := HourMinFromValue(v)
	return hour < 24
}

// HourMinFromValue splits fractional hours into hour and minute.
// A fraction that rounds to 60 minutes carries into the hour.
func HourMinFromValue(v decimal.Decimal) (int, int) {
	whole := v.Floor()
	hour := int(whole.IntPart())
	minute := int(v.Sub(whole).Mul(decimal.NewFromInt(60)).Round(0).IntPart())
	if minute == 60 {
		hour++
		minute = 0
	}
	return hour, minute
}

// FloatToTimeRepr renders fractional hours as "HH:MM".
func FloatToTimeRepr(v decimal.Decimal) string {
	hour, minute := HourMinFromValue(v)
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

package cutoff

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestTimeText(t *testing.T) {
	cases := []struct {
		cutoff string
		want   string
	}{
		{"14.5", "14:30:00"},
		{"12", "12:00:00"},
		{"0", "00:00:00"},
		{"7.25", "07:15:00"},
		{"9.999", "10:00:00"},
		{"23.75", "23:45:00"},
	}
	for _, tc := range cases {
		t.Run(tc.cutoff, func(t *testing.T) {
			got := TimeText(decimal.RequireFromString(tc.cutoff))
			assert.Equal(t, tc.want, got)
			assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, got)
		})
	}
}

func TestDiff(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	c := NewClassifier(fixedClock(now))
	noon := decimal.NewFromInt(12)

	cases := []struct {
		name      string
		scheduled time.Time
		want      int
	}{
		{"before yesterday cutoff", time.Date(2024, 1, 9, 11, 59, 0, 0, time.UTC), Before},
		{"within window", time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC), Within},
		{"after today cutoff", time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC), After},
		{"at yesterday cutoff", time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC), Within},
		{"at today cutoff", time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), Within},
		{"one second past today cutoff", time.Date(2024, 1, 10, 12, 0, 1, 0, time.UTC), After},
		{"far future", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), After},
		{"far past", time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), Before},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Diff(tc.scheduled, noon))
		})
	}
}

func TestDiffAlwaysInRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 17, 42, 0, time.UTC)
	cutoffs := []string{"0", "6.5", "12", "14.5", "23.9"}
	for _, raw := range cutoffs {
		cutoff := decimal.RequireFromString(raw)
		for h := -72; h <= 72; h += 5 {
			d := Diff(now, now.Add(time.Duration(h)*time.Hour), cutoff)
			assert.Contains(t, []int{Before, Within, After}, d, "cutoff %s offset %dh", raw, h)
		}
	}
}

func TestDiffIgnoresSubSecondNow(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 30, 12, 999, time.UTC)
	scheduled := time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, Within, Diff(now, scheduled, decimal.RequireFromString("14.5")))
}

func TestWindowAcrossDST(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// clocks moved forward on 2024-03-31
	now := time.Date(2024, 3, 31, 18, 0, 0, 0, paris)
	yesterday, today := Window(now, decimal.NewFromInt(14))

	assert.Equal(t, time.Date(2024, 3, 30, 14, 0, 0, 0, paris), yesterday)
	assert.Equal(t, time.Date(2024, 3, 31, 14, 0, 0, 0, paris), today)
	assert.Equal(t, 23*time.Hour, today.Sub(yesterday))
}

func TestNewClassifierDefaultsToUTC(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, time.UTC, c.Now().Location())
}

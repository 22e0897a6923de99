// Package cutoff classifies pickings against the daily order cutoff of their
// warehouse.
//
// A picking is Before (-1) when it is scheduled ahead of yesterday's cutoff,
// After (1) when it is scheduled past today's cutoff and Within (0) otherwise.
// Both boundaries belong to the window.
package cutoff

import (
	"time"

	"github.com/shopspring/decimal"

	"gitlab.ozon.dev/qwestard/cutoff-delivery/internal/models"
)

const (
	Before = -1
	Within = 0
	After  = 1
)

// Clock is the current-time source. Its location decides which calendar day
// "today" is.
type Clock func() time.Time

// UTCClock is the default clock.
func UTCClock() time.Time {
	return time.Now().UTC()
}

// ClockIn returns a clock reporting the current time in loc.
func ClockIn(loc *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// TimeText renders the cutoff as "HH:MM:SS".
func TimeText(cutoff decimal.Decimal) string {
	return models.FloatToTimeRepr(cutoff) + ":00"
}

// Window returns yesterday's and today's cutoff relative to now.
func Window(now time.Time, cutoff decimal.Decimal) (time.Time, time.Time) {
	hour, minute := models.HourMinFromValue(cutoff)
	today := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	// calendar day, not 24h: across a DST change the window is 23 or 25 hours long
	yesterday := today.AddDate(0, 0, -1)
	return yesterday, today
}

// Diff classifies scheduled against the cutoff window around now.
func Diff(now, scheduled time.Time, cutoff decimal.Decimal) int {
	yesterday, today := Window(now, cutoff)
	switch {
	case scheduled.Before(yesterday):
		return Before
	case scheduled.After(today):
		return After
	default:
		return Within
	}
}

type Classifier struct {
	now Clock
}

func NewClassifier(now Clock) *Classifier {
	if now == nil {
		now = UTCClock
	}
	return &Classifier{now: now}
}

func (c *Classifier) Now() time.Time {
	return c.now()
}

func (c *Classifier) Diff(scheduled time.Time, cutoff decimal.Decimal) int {
	return Diff(c.now(), scheduled, cutoff)
}

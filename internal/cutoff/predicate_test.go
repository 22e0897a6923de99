package cutoff

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateOperators(t *testing.T) {
	c := NewClassifier(fixedClock(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)))

	q, err := c.Predicate("=", Within)
	require.NoError(t, err)
	assert.Equal(t, OperatorIn, q.Operator)

	q, err = c.Predicate("!=", After)
	require.NoError(t, err)
	assert.Equal(t, OperatorNotIn, q.Operator)

	for _, op := range []string{"contains", "<", ">=", "in", ""} {
		_, err = c.Predicate(op, Within)
		assert.ErrorIs(t, err, ErrUnsupportedSearchOperator, op)
	}
}

func TestPredicateOperatorCheckedFirst(t *testing.T) {
	c := NewClassifier(nil)
	_, err := c.Predicate("contains", 7)
	assert.ErrorIs(t, err, ErrUnsupportedSearchOperator)
}

func TestPredicateUnsupportedValue(t *testing.T) {
	c := NewClassifier(nil)
	_, err := c.Predicate("=", 2)
	assert.ErrorIs(t, err, ErrUnsupportedSearchValue)
}

func TestPredicateQuery(t *testing.T) {
	c := NewClassifier(fixedClock(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)))

	t.Run("before", func(t *testing.T) {
		q, err := c.Predicate("=", Before)
		require.NoError(t, err)
		assert.Equal(t, []any{"UTC", "2024-01-09 "}, q.Args)
		assert.Contains(t, q.SQL, "< ($2::text || coalesce(cutoff_time_hms, '00:00:00'))")
		assert.NotContains(t, q.SQL, "$3")
	})

	t.Run("within", func(t *testing.T) {
		q, err := c.Predicate("=", Within)
		require.NoError(t, err)
		assert.Equal(t, []any{"UTC", "2024-01-09 ", "2024-01-10 "}, q.Args)
		assert.Contains(t, q.SQL, ">= ($2::text || coalesce(cutoff_time_hms, '00:00:00'))")
		assert.Contains(t, q.SQL, "<= ($3::text || coalesce(cutoff_time_hms, '00:00:00'))")
	})

	t.Run("after", func(t *testing.T) {
		q, err := c.Predicate("=", After)
		require.NoError(t, err)
		assert.Equal(t, []any{"UTC", "2024-01-10 "}, q.Args)
		assert.Contains(t, q.SQL, "> ($2::text || coalesce(cutoff_time_hms, '00:00:00'))")
	})

	q, err := c.Predicate("!=", Within)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT id FROM pickings WHERE state NOT IN ('cancel', 'done')"))
	assert.Contains(t, q.SQL, "'YYYY-MM-DD HH24:MI'")
}

func TestPredicateUsesClockZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	c := NewClassifier(fixedClock(time.Date(2024, 1, 10, 1, 0, 0, 0, tokyo)))
	q, err := c.Predicate("=", After)
	require.NoError(t, err)
	assert.Equal(t, []any{"Asia/Tokyo", "2024-01-10 "}, q.Args)
}

func TestQueryFilter(t *testing.T) {
	q := Query{Operator: OperatorNotIn}
	f := q.Filter(nil)
	assert.Equal(t, "id", f.Field)
	assert.Equal(t, OperatorNotIn, f.Operator)
	assert.NotNil(t, f.IDs)
	assert.Empty(t, f.IDs)
}

// sqlClass mirrors the string comparison the native query performs.
func sqlClass(now, scheduled time.Time, hms string) int {
	text := scheduled.Format("2006-01-02 15:04")
	yesterday := now.AddDate(0, 0, -1).Format(boundaryLayout) + hms
	today := now.Format(boundaryLayout) + hms
	switch {
	case text < yesterday:
		return Before
	case text > today:
		return After
	default:
		return Within
	}
}

func TestPredicateApproximatesDiff(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	noon := decimal.NewFromInt(12)
	hms := TimeText(noon)

	agree := []time.Time{
		time.Date(2024, 1, 9, 11, 59, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 12, 1, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 1, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC),
	}
	for _, s := range agree {
		assert.Equal(t, Diff(now, s, noon), sqlClass(now, s, hms), s.String())
	}

	// seconds are truncated away by the query
	pastToday := time.Date(2024, 1, 10, 12, 0, 30, 0, time.UTC)
	assert.Equal(t, After, Diff(now, pastToday, noon))
	assert.Equal(t, Within, sqlClass(now, pastToday, hms))

	// "2024-01-09 12:00" sorts before "2024-01-09 12:00:00"
	atYesterday := time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Within, Diff(now, atYesterday, noon))
	assert.Equal(t, Before, sqlClass(now, atYesterday, hms))
}

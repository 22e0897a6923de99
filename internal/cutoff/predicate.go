package cutoff

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSearchOperator = errors.New("unsupported search operator")
	ErrUnsupportedSearchValue    = errors.New("unsupported search value")
)

const (
	OperatorIn    = "in"
	OperatorNotIn = "not in"

	boundaryLayout = "2006-01-02 "
)

// scheduled_date is stored as UTC wall clock and is shifted into the clock's
// zone before being truncated to the minute.
const scheduledText = `to_char(scheduled_date AT TIME ZONE 'UTC' AT TIME ZONE $1::text, 'YYYY-MM-DD HH24:MI')`

const boundaryText = `($%d::text || coalesce(cutoff_time_hms, '00:00:00'))`

// Query is a native SQL query returning the ids of active pickings in one
// cutoff class. Operator is the id operator the ids must be used with.
type Query struct {
	SQL      string
	Args     []any
	Operator string
}

// Filter is the translated search predicate: Field Operator IDs.
type Filter struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"`
	IDs      []int64 `json:"ids"`
}

func (q Query) Filter(ids []int64) Filter {
	if ids == nil {
		ids = []int64{}
	}
	return Filter{Field: "id", Operator: q.Operator, IDs: ids}
}

// Predicate translates "cutoff_time_diff <operator> <value>" into a native
// query over pickings.
//
// The query compares minute-truncated text instead of timestamps, so it is an
// approximation of Diff: a picking scheduled a few seconds after today's
// cutoff is Within here but After for Diff, and one scheduled exactly at
// yesterday's cutoff is Before here but Within for Diff.
func (c *Classifier) Predicate(operator string, value int) (Query, error) {
	var idOperator string
	switch operator {
	case "=":
		idOperator = OperatorIn
	case "!=":
		idOperator = OperatorNotIn
	default:
		return Query{}, fmt.Errorf("%w %s", ErrUnsupportedSearchOperator, operator)
	}

	now := c.now()
	today := now.Format(boundaryLayout)
	yesterday := now.AddDate(0, 0, -1).Format(boundaryLayout)
	tz := now.Location().String()

	var where string
	var args []any
	switch value {
	case Before:
		where = scheduledText + " < " + fmt.Sprintf(boundaryText, 2)
		args = []any{tz, yesterday}
	case Within:
		where = scheduledText + " >= " + fmt.Sprintf(boundaryText, 2) +
			" AND " + scheduledText + " <= " + fmt.Sprintf(boundaryText, 3)
		args = []any{tz, yesterday, today}
	case After:
		where = scheduledText + " > " + fmt.Sprintf(boundaryText, 2)
		args = []any{tz, today}
	default:
		return Query{}, fmt.Errorf("%w %d", ErrUnsupportedSearchValue, value)
	}

	sql := `SELECT id FROM pickings WHERE state NOT IN ('cancel', 'done') AND ` + where + ` ORDER BY id`
	return Query{SQL: sql, Args: args, Operator: idOperator}, nil
}

package models

import "time"

type PickingState string

const (
	PickingStateDraft     PickingState = "draft"
	PickingStateWaiting   PickingState = "waiting"
	PickingStateConfirmed PickingState = "confirmed"
	PickingStateAssigned  PickingState = "assigned"
	PickingStateDone      PickingState = "done"
	PickingStateCancel    PickingState = "cancel"
)

func (s PickingState) Valid() bool {
	switch s {
	case PickingStateDraft, PickingStateWaiting, PickingStateConfirmed,
		PickingStateAssigned, PickingStateDone, PickingStateCancel:
		return true
	}
	return false
}

// Active pickings are the ones the cutoff search looks at.
func (s PickingState) Active() bool {
	return s != PickingStateDone && s != PickingStateCancel
}

type Picking struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	LocationID    int64        `json:"location_id"`
	ScheduledDate time.Time    `json:"scheduled_date"`
	State         PickingState `json:"state"`
	// CutoffTimeHMS is stored and follows LocationID.
	CutoffTimeHMS string `json:"cutoff_time_hms"`
	// CutoffTimeDiff is never stored, it depends on the current time.
	CutoffTimeDiff int `json:"cutoff_time_diff"`
}

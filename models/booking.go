package models

import "time"

// Booking statuses. Full lifecycle:
//
//	pending → matched → confirmed → in_progress → completed → rated → closed
//
// A caregiver may take a pending/confirmed offer to accepted, or decline it to
// rejected. Cancellation is allowed from every non-terminal state.
const (
	StatusPending    = "pending"
	StatusMatched    = "matched"
	StatusConfirmed  = "confirmed"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
	StatusRated      = "rated"
	StatusClosed     = "closed"
	StatusCancelled  = "cancelled"
)

// Booking represents a care appointment between a caregiver and a civilian.
type Booking struct {
	ID          int64     `json:"id"`
	CaregiverID int64     `json:"caregiver_id"` // 0 until matched
	CivilianID  int64     `json:"civilian_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// OverlapsWith reports whether the booking intersects the given time range.
func (b Booking) OverlapsWith(start, end time.Time) bool {
	return end.After(b.StartTime) && start.Before(b.EndTime)
}

// Job is the caregiver-facing projection of a booking, with the civilian's
// display name denormalised in.
type Job struct {
	ID           int64     `json:"id"`
	CivilianID   int64     `json:"civilian_id"`
	CivilianName string    `json:"civilian_name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
}

// bookingTransitions maps each status to the statuses reachable from it.
var bookingTransitions = map[string][]string{
	StatusPending:    {StatusMatched, StatusAccepted, StatusRejected, StatusCancelled},
	StatusMatched:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusAccepted, StatusRejected, StatusInProgress, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:     {StatusInProgress, StatusCancelled},
	StatusCompleted:  {StatusRated, StatusCancelled},
	StatusRated:      {StatusClosed},
	StatusClosed:     {},
	StatusCancelled:  {},
	StatusRejected:   {},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, t := range bookingTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from string) []string {
	return bookingTransitions[from]
}

// TerminalStatus reports whether no further transitions can occur. Clients use
// this to decide when to stop polling a booking.
func TerminalStatus(status string) bool {
	switch status {
	case StatusClosed, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

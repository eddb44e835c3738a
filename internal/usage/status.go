package usage

import (
	"time"

	"equipment-usage-backend/internal/model"
)

// Status is a log's effective lifecycle status at an evaluation instant.
type Status string

const (
	StatusNotStarted Status = model.StatusNotStarted
	StatusInProgress Status = model.StatusInProgress
	StatusCompleted  Status = model.StatusCompleted
	StatusOverdue    Status = model.StatusOverdue
)

// EffectiveStatus derives a log's status at `now`. The stored status is
// authoritative only when completed; otherwise the status is purely temporal
// and can flip between in-progress/overdue/not-started as `now` advances,
// without any write.
func EffectiveStatus(lg model.UsageLog, now time.Time) Status {
	if lg.Status == model.StatusCompleted {
		// Terminal, even with a future end time. That is a data anomaly to
		// surface elsewhere, not to correct here.
		return StatusCompleted
	}
	if lg.EndTime != nil && lg.EndTime.Before(now) {
		return StatusOverdue
	}
	if !lg.StartTime.IsZero() && !lg.StartTime.After(now) &&
		(lg.EndTime == nil || lg.EndTime.After(now)) {
		return StatusInProgress
	}
	return Status(lg.Status)
}

// IsOccupying reports whether the log currently ties up its equipment,
// independent of the display status above. A log still tagged not-started
// whose start has already passed is occupying.
func IsOccupying(lg model.UsageLog, now time.Time) bool {
	if lg.Status == model.StatusCompleted {
		return false
	}
	if lg.StartTime.IsZero() || lg.StartTime.After(now) {
		return false
	}
	return lg.EndTime == nil || lg.EndTime.After(now)
}

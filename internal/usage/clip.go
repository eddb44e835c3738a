package usage

import (
	"time"

	"equipment-usage-backend/internal/model"
)

// ClippedInterval is the portion of a log's interval that counts toward a
// reporting window. Estimated is true when the end was inferred from `now`
// rather than taken from a stored end time.
type ClippedInterval struct {
	Start     time.Time
	End       time.Time
	Estimated bool
}

// ClipToWindow decides how much of a log's interval falls inside
// [rangeStart, rangeEnd). It is the only place that decides "how much of this
// record counts here"; every consumer routes through it. ok=false means the
// log contributes nothing to the window.
//
// A log without an end time only counts when includeInProgress is set and the
// stored status says it is running (in-progress or overdue); its end is then
// estimated as min(now, rangeEnd) - never projected past the clock or the
// window. A completed log without an end time is excluded outright and should
// be flagged for investigation rather than guessed at.
func ClipToWindow(lg model.UsageLog, rangeStart, rangeEnd time.Time, includeInProgress bool, now time.Time) (ClippedInterval, bool) {
	if lg.StartTime.IsZero() {
		return ClippedInterval{}, false
	}

	var rawEnd time.Time
	estimated := false
	switch {
	case lg.EndTime != nil:
		rawEnd = *lg.EndTime
	case !includeInProgress:
		return ClippedInterval{}, false
	case lg.Status != model.StatusInProgress && lg.Status != model.StatusOverdue:
		return ClippedInterval{}, false
	default:
		rawEnd = now
		if rangeEnd.Before(rawEnd) {
			rawEnd = rangeEnd
		}
		estimated = true
	}

	start := lg.StartTime
	if start.Before(rangeStart) {
		start = rangeStart
	}
	end := rawEnd
	if rangeEnd.Before(end) {
		end = rangeEnd
	}
	if !end.After(start) {
		return ClippedInterval{}, false
	}
	return ClippedInterval{Start: start, End: end, Estimated: estimated}, true
}

package usage

import "time"

// BillableHours converts a clipped interval into whole billable hours.
// One minute of occupancy bills a full hour; exactly N hours bills N hours,
// never N+1. Non-positive durations bill 0.
func BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := d / time.Hour
	if d%time.Hour != 0 {
		hours++
	}
	return int64(hours)
}

// CostCents is an integer multiply with no further rounding. Degenerate
// inputs clamp to 0 rather than erroring.
func CostCents(hours, rateCents int64) int64 {
	if hours <= 0 || rateCents <= 0 {
		return 0
	}
	return hours * rateCents
}

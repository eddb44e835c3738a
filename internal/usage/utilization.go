package usage

import (
	"sort"
	"time"

	"equipment-usage-backend/internal/model"
)

// Interval is one occupied time span, half-open.
type Interval struct {
	Start time.Time
	End   time.Time
}

// MergeIntervals collapses overlapping or touching intervals into a
// non-overlapping set. Two overlapping logs on the same equipment must never
// double-count occupied time.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if !iv.Start.After(cur.End) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
		} else {
			merged = append(merged, iv)
		}
	}
	return merged
}

// UtilizationReport is the dashboard occupancy KPI.
type UtilizationReport struct {
	Occupied time.Duration `json:"-"`
	Capacity time.Duration `json:"-"`
	Ratio    float64       `json:"ratio"`
}

// Utilization clips every log to the window, merges per-equipment intervals
// and sums the merged durations. Ratio = occupied / (equipmentCount * window
// duration), capped at 1.0. In-progress logs always count here: a running
// log ties up its equipment whether or not the report estimates its cost.
func Utilization(logs []model.UsageLog, equipmentCount int, rangeStart, rangeEnd, now time.Time) UtilizationReport {
	byEquipment := make(map[string][]Interval)
	for _, lg := range logs {
		iv, ok := ClipToWindow(lg, rangeStart, rangeEnd, true, now)
		if !ok {
			continue
		}
		byEquipment[lg.EquipmentID] = append(byEquipment[lg.EquipmentID], Interval{Start: iv.Start, End: iv.End})
	}

	var occupied time.Duration
	for _, intervals := range byEquipment {
		for _, m := range MergeIntervals(intervals) {
			occupied += m.End.Sub(m.Start)
		}
	}

	capacity := time.Duration(equipmentCount) * rangeEnd.Sub(rangeStart)
	var ratio float64
	if capacity > 0 {
		ratio = float64(occupied) / float64(capacity)
		if ratio > 1 {
			ratio = 1
		}
	}
	return UtilizationReport{Occupied: occupied, Capacity: capacity, Ratio: ratio}
}

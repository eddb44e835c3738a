package usage

import (
	"time"

	"equipment-usage-backend/internal/model"
)

// Snapshot is the rate/hours/cost captured on a log at completion or
// recompute time, immune to later changes in category/default rates.
type Snapshot struct {
	RateCents     int64      `json:"rate_cents"`
	BillableHours int64      `json:"billable_hours"`
	CostCents     int64      `json:"cost_cents"`
	Source        RateSource `json:"source"`
	At            time.Time  `json:"at"`
}

// RecomputeResult describes one snapshot recompute for the audit-log writer.
type RecomputeResult struct {
	Updated  bool      `json:"updated"`
	Previous *Snapshot `json:"previous"`
	Next     *Snapshot `json:"next"`
}

// ComputeSnapshot derives a fresh snapshot over the log's own full interval,
// resolving the rate from the category/equipment tiers only - honoring an
// existing snapshot would make every recompute a permanent no-op. ok=false
// when the log has no usable interval (missing start or end); such logs are
// flagged for investigation rather than given an inferred end time.
func ComputeSnapshot(lg model.UsageLog, eq *model.Equipment, categoryRates map[string]float64, now time.Time) (Snapshot, bool) {
	if lg.StartTime.IsZero() || lg.EndTime == nil {
		return Snapshot{}, false
	}

	fresh := lg
	fresh.SnapshotRateCents = nil
	rate := ResolveRate(fresh, eq, categoryRates)
	hours := BillableHours(lg.StartTime, *lg.EndTime)

	return Snapshot{
		RateCents:     rate.Cents,
		BillableHours: hours,
		CostCents:     CostCents(hours, rate.Cents),
		Source:        rate.Source,
		At:            now,
	}, true
}

// RecomputeSnapshot compares the stored snapshot with a freshly computed one.
// Recomputing with identical inputs yields an identical snapshot, so the
// write-back is idempotent; Updated is false when nothing would change.
func RecomputeSnapshot(lg model.UsageLog, eq *model.Equipment, categoryRates map[string]float64, now time.Time) RecomputeResult {
	prev := StoredSnapshot(lg)
	next, ok := ComputeSnapshot(lg, eq, categoryRates, now)
	if !ok {
		return RecomputeResult{Updated: false, Previous: prev}
	}
	if prev != nil &&
		prev.RateCents == next.RateCents &&
		prev.BillableHours == next.BillableHours &&
		prev.CostCents == next.CostCents {
		return RecomputeResult{Updated: false, Previous: prev, Next: prev}
	}
	return RecomputeResult{Updated: true, Previous: prev, Next: &next}
}

// StoredSnapshot materializes the log's persisted snapshot columns, or nil
// if no complete snapshot has ever been captured.
func StoredSnapshot(lg model.UsageLog) *Snapshot {
	if lg.SnapshotRateCents == nil || lg.SnapshotBillableHours == nil || lg.SnapshotCostCents == nil {
		return nil
	}
	snap := Snapshot{
		RateCents:     *lg.SnapshotRateCents,
		BillableHours: *lg.SnapshotBillableHours,
		CostCents:     *lg.SnapshotCostCents,
		Source:        RateSource(lg.SnapshotSource),
	}
	if lg.SnapshotAt != nil {
		snap.At = *lg.SnapshotAt
	}
	return &snap
}

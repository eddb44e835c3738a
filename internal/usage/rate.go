package usage

import (
	"math"

	"equipment-usage-backend/internal/model"
)

// RateSource identifies which tier produced an hourly rate.
type RateSource string

const (
	RateSourceSnapshot  RateSource = "snapshot"
	RateSourceCategory  RateSource = "category"
	RateSourceEquipment RateSource = "equipment"
)

// ResolvedRate is an hourly rate in integer cents plus its provenance.
type ResolvedRate struct {
	Cents  int64
	Source RateSource
}

// ResolveRate picks the applicable hourly rate for a log. Exactly one tier
// applies; sources are never blended:
//
//  1. the log's own snapshot rate, if captured;
//  2. the category-rate table entry for the equipment's category (an empty
//     string is a valid, distinct category key);
//  3. the equipment's default rate, clamped non-negative, 0 when the
//     equipment is missing entirely.
func ResolveRate(lg model.UsageLog, eq *model.Equipment, categoryRates map[string]float64) ResolvedRate {
	if lg.SnapshotRateCents != nil {
		return ResolvedRate{Cents: *lg.SnapshotRateCents, Source: RateSourceSnapshot}
	}
	if eq != nil && eq.Category != nil {
		if cents, ok := categoryRates[*eq.Category]; ok {
			return ResolvedRate{Cents: RoundRateCents(cents), Source: RateSourceCategory}
		}
	}
	var def float64
	if eq != nil {
		def = eq.DefaultHourlyRateCents
	}
	return ResolvedRate{Cents: RoundRateCents(def), Source: RateSourceEquipment}
}

// RoundRateCents rounds a raw rate to the nearest integer cent, clamping
// non-finite and negative values to 0.
func RoundRateCents(raw float64) int64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return 0
	}
	return int64(math.Round(raw))
}

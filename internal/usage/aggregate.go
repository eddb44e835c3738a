package usage

import (
	"fmt"
	"sort"
	"time"

	"equipment-usage-backend/internal/model"
)

// GroupBy is a report grouping dimension.
type GroupBy string

const (
	GroupByEquipment GroupBy = "equipment"
	GroupByProject   GroupBy = "project"
	GroupByUser      GroupBy = "user"
	GroupByCategory  GroupBy = "category"
)

// AllProjects is the project-filter sentinel meaning "no filter".
const AllProjects = "all"

// Synthetic group keys.
const (
	UnlinkedKey      = "unlinked"
	UncategorizedKey = "uncategorized"
	BlankUserKey     = "-"
)

// Labels carries caller-supplied localized labels for placeholder groups.
type Labels struct {
	Unlinked      string
	Uncategorized string
}

// ReportParams are the caller-controlled knobs of one report invocation. Now
// must be captured once per invocation and threaded through all calls;
// re-sampling the clock mid-computation would make estimated/in-progress
// decisions inconsistent within one report.
type ReportParams struct {
	RangeStart        time.Time
	RangeEnd          time.Time
	ProjectID         string // AllProjects or a specific project id
	IncludeUnlinked   bool
	IncludeInProgress bool
	Now               time.Time
	Labels            Labels
}

// Inputs are the already-materialized collections the engine computes over.
// The engine performs no I/O and holds no state of its own.
type Inputs struct {
	Logs          []model.UsageLog
	Equipment     map[string]model.Equipment
	CategoryRates map[string]float64
	Projects      map[string]string // id -> display name
	TestProjects  map[string]string
}

// CostLine is the per-log billing result within a window, recomputed per
// request and never stored.
type CostLine struct {
	LogID           string     `json:"log_id"`
	EquipmentID     string     `json:"equipment_id"`
	EquipmentName   string     `json:"equipment_name"`
	Category        *string    `json:"category"`
	ProjectID       *string    `json:"project_id"`
	TestProjectID   *string    `json:"test_project_id"`
	ProjectName     string     `json:"project_name"`
	UserName        string     `json:"user_name"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	BillableHours   int64      `json:"billable_hours"`
	HourlyRateCents int64      `json:"hourly_rate_cents"`
	RateSource      RateSource `json:"rate_source"`
	CostCents       int64      `json:"cost_cents"`
	Estimated       bool       `json:"estimated"`
	Day             string     `json:"day"` // UTC calendar day of the clipped start
}

// CostGroup is a rollup of cost lines along one dimension.
type CostGroup struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	CostCents     int64  `json:"cost_cents"`
	BillableHours int64  `json:"billable_hours"`
	LogCount      int    `json:"log_count"`
	// HourlyRateCents is set only when every member line shares the identical
	// rate; nil is the "mixed rate" signal the caller must surface.
	HourlyRateCents *int64 `json:"hourly_rate_cents"`
	HasSnapshotRate bool   `json:"has_snapshot_rate"`
	HasFallbackRate bool   `json:"has_fallback_rate"`
}

// DailyPoint is one UTC calendar day of the trend series.
type DailyPoint struct {
	Day           string `json:"day"`
	CostCents     int64  `json:"cost_cents"`
	BillableHours int64  `json:"billable_hours"`
	LogCount      int    `json:"log_count"`
}

// BuildCostLines runs every log through the clipper and the rate tiers,
// producing one line per log that overlaps the window. Logs filtered out by
// the project filter contribute nothing anywhere.
func BuildCostLines(in Inputs, p ReportParams) []CostLine {
	lines := make([]CostLine, 0, len(in.Logs))
	for _, lg := range in.Logs {
		if p.ProjectID != "" && p.ProjectID != AllProjects {
			if lg.ProjectID == nil || *lg.ProjectID != p.ProjectID {
				continue
			}
		} else if lg.ProjectID == nil && lg.TestProjectID == nil && !p.IncludeUnlinked {
			continue
		}

		iv, ok := ClipToWindow(lg, p.RangeStart, p.RangeEnd, p.IncludeInProgress, p.Now)
		if !ok {
			continue
		}

		var eq *model.Equipment
		if e, found := in.Equipment[lg.EquipmentID]; found {
			eq = &e
		}
		rate := ResolveRate(lg, eq, in.CategoryRates)
		hours := BillableHours(iv.Start, iv.End)

		line := CostLine{
			LogID:           lg.ID,
			EquipmentID:     lg.EquipmentID,
			EquipmentName:   lg.EquipmentID,
			ProjectID:       lg.ProjectID,
			TestProjectID:   lg.TestProjectID,
			UserName:        lg.UserName,
			Start:           iv.Start,
			End:             iv.End,
			BillableHours:   hours,
			HourlyRateCents: rate.Cents,
			RateSource:      rate.Source,
			CostCents:       CostCents(hours, rate.Cents),
			Estimated:       iv.Estimated,
			Day:             iv.Start.UTC().Format("2006-01-02"),
		}
		if eq != nil {
			line.EquipmentName = eq.Name
			line.Category = eq.Category
		}
		line.ProjectName = projectLabel(lg, in, p.Labels)
		lines = append(lines, line)
	}
	return lines
}

func projectLabel(lg model.UsageLog, in Inputs, labels Labels) string {
	if lg.ProjectID != nil {
		if name, ok := in.Projects[*lg.ProjectID]; ok && name != "" {
			return name
		}
		return *lg.ProjectID
	}
	if lg.TestProjectID != nil {
		if name, ok := in.TestProjects[*lg.TestProjectID]; ok && name != "" {
			return name
		}
		return *lg.TestProjectID
	}
	return labels.Unlinked
}

// GroupLines rolls lines up along one dimension, ordered by cost descending.
// An out-of-domain dimension is a programmer error and fails loudly;
// silently mis-grouping financial data would be worse than crashing.
func GroupLines(lines []CostLine, dim GroupBy, labels Labels) ([]CostGroup, error) {
	switch dim {
	case GroupByEquipment, GroupByProject, GroupByUser, GroupByCategory:
	default:
		return nil, fmt.Errorf("unknown grouping dimension %q", dim)
	}

	type acc struct {
		group     CostGroup
		firstRate int64
		mixed     bool
	}
	byKey := make(map[string]*acc)
	order := make([]string, 0)

	for _, line := range lines {
		key, label := groupKey(line, dim, labels)
		a, ok := byKey[key]
		if !ok {
			a = &acc{group: CostGroup{Key: key, Label: label}, firstRate: line.HourlyRateCents}
			byKey[key] = a
			order = append(order, key)
		}
		a.group.CostCents += line.CostCents
		a.group.BillableHours += line.BillableHours
		a.group.LogCount++
		if line.HourlyRateCents != a.firstRate {
			a.mixed = true
		}
		switch line.RateSource {
		case RateSourceSnapshot:
			a.group.HasSnapshotRate = true
		case RateSourceCategory, RateSourceEquipment:
			a.group.HasFallbackRate = true
		}
	}

	groups := make([]CostGroup, 0, len(byKey))
	for _, key := range order {
		a := byKey[key]
		if !a.mixed {
			rate := a.firstRate
			a.group.HourlyRateCents = &rate
		}
		groups = append(groups, a.group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].CostCents != groups[j].CostCents {
			return groups[i].CostCents > groups[j].CostCents
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

func groupKey(line CostLine, dim GroupBy, labels Labels) (key, label string) {
	switch dim {
	case GroupByEquipment:
		return line.EquipmentID, line.EquipmentName
	case GroupByProject:
		// A test-project link counts as linked, same as the unlinked filter.
		if line.ProjectID != nil {
			return *line.ProjectID, line.ProjectName
		}
		if line.TestProjectID != nil {
			return *line.TestProjectID, line.ProjectName
		}
		return UnlinkedKey, labels.Unlinked
	case GroupByUser:
		if line.UserName == "" {
			return BlankUserKey, BlankUserKey
		}
		return line.UserName, line.UserName
	default: // GroupByCategory, checked by the caller
		if line.Category == nil || *line.Category == "" {
			return UncategorizedKey, labels.Uncategorized
		}
		return *line.Category, *line.Category
	}
}

// DailySeries buckets lines by the UTC calendar day of their clipped start
// (a log starting before the window is attributed to the window's first day)
// and zero-fills every UTC day between the window's start day and end day
// inclusive, even with no matching lines.
func DailySeries(lines []CostLine, rangeStart, rangeEnd time.Time) []DailyPoint {
	byDay := make(map[string]*DailyPoint)
	for _, line := range lines {
		pt, ok := byDay[line.Day]
		if !ok {
			pt = &DailyPoint{Day: line.Day}
			byDay[line.Day] = pt
		}
		pt.CostCents += line.CostCents
		pt.BillableHours += line.BillableHours
		pt.LogCount++
	}

	startDay := utcDay(rangeStart)
	endDay := utcDay(rangeEnd)
	var series []DailyPoint
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if pt, ok := byDay[key]; ok {
			series = append(series, *pt)
		} else {
			series = append(series, DailyPoint{Day: key})
		}
	}
	return series
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

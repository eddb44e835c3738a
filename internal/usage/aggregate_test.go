package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-usage-backend/internal/model"
)

var testLabels = Labels{Unlinked: "No project", Uncategorized: "No category"}

func reportInputs() Inputs {
	return Inputs{
		Equipment: map[string]model.Equipment{
			"mill-1":  {ID: "mill-1", Name: "Milling Machine 1", Category: sp("mill"), DefaultHourlyRateCents: 900},
			"lathe-1": {ID: "lathe-1", Name: "Lathe 1", DefaultHourlyRateCents: 600},
		},
		CategoryRates: map[string]float64{"mill": 700},
		Projects:      map[string]string{"p1": "Project One"},
		TestProjects:  map[string]string{"tp1": "Qualification Run"},
	}
}

func reportParams() ReportParams {
	return ReportParams{
		RangeStart:        ts("2026-01-01T00:00:00Z"),
		RangeEnd:          ts("2026-01-08T00:00:00Z"),
		ProjectID:         AllProjects,
		IncludeUnlinked:   true,
		IncludeInProgress: true,
		Now:               ts("2026-01-05T12:00:00Z"),
		Labels:            testLabels,
	}
}

// Scenario A from the billing contract: one minute at a 500c/hr snapshot rate
// bills one full hour.
func TestBuildCostLines_SnapshotMinute(t *testing.T) {
	in := reportInputs()
	in.Logs = []model.UsageLog{{
		ID:                "log-1",
		EquipmentID:       "mill-1",
		ProjectID:         sp("p1"),
		StartTime:         ts("2026-01-01T00:00:00Z"),
		EndTime:           tsp("2026-01-01T00:01:00Z"),
		Status:            model.StatusCompleted,
		SnapshotRateCents: ip(500),
	}}

	lines := BuildCostLines(in, reportParams())
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, int64(1), line.BillableHours)
	assert.Equal(t, int64(500), line.CostCents)
	assert.Equal(t, RateSourceSnapshot, line.RateSource)
	assert.Equal(t, "Project One", line.ProjectName)
	assert.Equal(t, "Milling Machine 1", line.EquipmentName)
	assert.Equal(t, "2026-01-01", line.Day)
	assert.False(t, line.Estimated)
}

// Scenario C: an open in-progress log gets an estimated line computed against
// the clamped end.
func TestBuildCostLines_EstimatedLine(t *testing.T) {
	in := reportInputs()
	in.Logs = []model.UsageLog{{
		ID:          "log-open",
		EquipmentID: "lathe-1",
		StartTime:   ts("2026-01-05T10:00:00Z"),
		Status:      model.StatusInProgress,
	}}

	lines := BuildCostLines(in, reportParams())
	require.Len(t, lines, 1)
	line := lines[0]
	assert.True(t, line.Estimated)
	// 10:00 to now (12:00) is 2 hours at the 600c equipment default.
	assert.Equal(t, int64(2), line.BillableHours)
	assert.Equal(t, int64(1200), line.CostCents)
	assert.Equal(t, RateSourceEquipment, line.RateSource)
}

func TestBuildCostLines_ProjectFilter(t *testing.T) {
	in := reportInputs()
	in.Logs = []model.UsageLog{
		{ID: "a", EquipmentID: "mill-1", ProjectID: sp("p1"), StartTime: ts("2026-01-02T08:00:00Z"), EndTime: tsp("2026-01-02T09:00:00Z")},
		{ID: "b", EquipmentID: "mill-1", ProjectID: sp("p2"), StartTime: ts("2026-01-02T08:00:00Z"), EndTime: tsp("2026-01-02T09:00:00Z")},
		{ID: "c", EquipmentID: "mill-1", StartTime: ts("2026-01-02T08:00:00Z"), EndTime: tsp("2026-01-02T09:00:00Z")},
	}

	p := reportParams()
	p.ProjectID = "p1"
	lines := BuildCostLines(in, p)
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].LogID)

	p.ProjectID = AllProjects
	p.IncludeUnlinked = false
	lines = BuildCostLines(in, p)
	assert.Len(t, lines, 2)
}

func TestBuildCostLines_TestProjectLabel(t *testing.T) {
	in := reportInputs()
	in.Logs = []model.UsageLog{{
		ID: "t", EquipmentID: "mill-1", TestProjectID: sp("tp1"),
		StartTime: ts("2026-01-02T08:00:00Z"), EndTime: tsp("2026-01-02T09:00:00Z"),
	}}

	lines := BuildCostLines(in, reportParams())
	require.Len(t, lines, 1)
	assert.Equal(t, "Qualification Run", lines[0].ProjectName)
}

func TestGroupLines(t *testing.T) {
	lines := []CostLine{
		{LogID: "1", EquipmentID: "mill-1", EquipmentName: "Mill", Category: sp("mill"), UserName: "ada", ProjectID: sp("p1"), ProjectName: "Project One", BillableHours: 2, HourlyRateCents: 700, RateSource: RateSourceCategory, CostCents: 1400},
		{LogID: "2", EquipmentID: "mill-1", EquipmentName: "Mill", Category: sp("mill"), UserName: "", BillableHours: 1, HourlyRateCents: 500, RateSource: RateSourceSnapshot, CostCents: 500},
		{LogID: "3", EquipmentID: "lathe-1", EquipmentName: "Lathe", UserName: "ada", BillableHours: 3, HourlyRateCents: 600, RateSource: RateSourceEquipment, CostCents: 1800},
	}

	t.Run("by equipment, cost descending, mixed rate is nil", func(t *testing.T) {
		groups, err := GroupLines(lines, GroupByEquipment, testLabels)
		require.NoError(t, err)
		require.Len(t, groups, 2)

		assert.Equal(t, "mill-1", groups[0].Key)
		assert.Equal(t, "Mill", groups[0].Label)
		assert.Equal(t, int64(1900), groups[0].CostCents)
		assert.Equal(t, int64(3), groups[0].BillableHours)
		assert.Equal(t, 2, groups[0].LogCount)
		assert.Nil(t, groups[0].HourlyRateCents)
		assert.True(t, groups[0].HasSnapshotRate)
		assert.True(t, groups[0].HasFallbackRate)

		assert.Equal(t, "lathe-1", groups[1].Key)
		require.NotNil(t, groups[1].HourlyRateCents)
		assert.Equal(t, int64(600), *groups[1].HourlyRateCents)
		assert.False(t, groups[1].HasSnapshotRate)
		assert.True(t, groups[1].HasFallbackRate)
	})

	// Scenario D: unlinked records form one group with the supplied label.
	t.Run("by project with unlinked placeholder", func(t *testing.T) {
		groups, err := GroupLines(lines, GroupByProject, testLabels)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, UnlinkedKey, groups[0].Key)
		assert.Equal(t, "No project", groups[0].Label)
		assert.Equal(t, int64(2300), groups[0].CostCents)
		assert.Equal(t, "p1", groups[1].Key)
	})

	t.Run("by user with blank placeholder", func(t *testing.T) {
		groups, err := GroupLines(lines, GroupByUser, testLabels)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "ada", groups[0].Key)
		assert.Equal(t, BlankUserKey, groups[1].Key)
	})

	t.Run("by category with uncategorized placeholder", func(t *testing.T) {
		groups, err := GroupLines(lines, GroupByCategory, testLabels)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "mill", groups[0].Key)
		assert.Equal(t, UncategorizedKey, groups[1].Key)
		assert.Equal(t, "No category", groups[1].Label)
	})

	t.Run("unknown dimension fails loudly", func(t *testing.T) {
		_, err := GroupLines(lines, GroupBy("bogus"), testLabels)
		assert.Error(t, err)
	})
}

// A record linked only to a test project groups under the test project's own
// key, not the unlinked placeholder.
func TestGroupLines_TestProjectKey(t *testing.T) {
	in := reportInputs()
	in.Logs = []model.UsageLog{
		{ID: "t", EquipmentID: "mill-1", TestProjectID: sp("tp1"), StartTime: ts("2026-01-02T08:00:00Z"), EndTime: tsp("2026-01-02T09:00:00Z")},
		{ID: "u", EquipmentID: "mill-1", StartTime: ts("2026-01-02T10:00:00Z"), EndTime: tsp("2026-01-02T10:30:00Z")},
	}

	lines := BuildCostLines(in, reportParams())
	require.Len(t, lines, 2)

	groups, err := GroupLines(lines, GroupByProject, testLabels)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byKey := map[string]CostGroup{}
	for _, g := range groups {
		byKey[g.Key] = g
	}
	tp, ok := byKey["tp1"]
	require.True(t, ok)
	assert.Equal(t, "Qualification Run", tp.Label)
	assert.Equal(t, 1, tp.LogCount)
	unlinked, ok := byKey[UnlinkedKey]
	require.True(t, ok)
	assert.Equal(t, 1, unlinked.LogCount)
}

func TestGroupLines_SingleRateIsUniform(t *testing.T) {
	lines := []CostLine{
		{EquipmentID: "e", HourlyRateCents: 700, CostCents: 700, BillableHours: 1},
		{EquipmentID: "e", HourlyRateCents: 700, CostCents: 1400, BillableHours: 2},
	}
	groups, err := GroupLines(lines, GroupByEquipment, testLabels)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].HourlyRateCents)
	assert.Equal(t, int64(700), *groups[0].HourlyRateCents)
}

func TestDailySeries(t *testing.T) {
	rangeStart := ts("2026-01-01T06:00:00Z")
	rangeEnd := ts("2026-01-05T18:00:00Z")

	lines := []CostLine{
		{Day: "2026-01-01", CostCents: 500, BillableHours: 1},
		{Day: "2026-01-01", CostCents: 700, BillableHours: 2},
		{Day: "2026-01-03", CostCents: 900, BillableHours: 3},
	}

	series := DailySeries(lines, rangeStart, rangeEnd)
	// Start day through end day inclusive: Jan 1..5.
	require.Len(t, series, 5)
	assert.Equal(t, "2026-01-01", series[0].Day)
	assert.Equal(t, int64(1200), series[0].CostCents)
	assert.Equal(t, 2, series[0].LogCount)
	assert.Equal(t, DailyPoint{Day: "2026-01-02"}, series[1])
	assert.Equal(t, int64(900), series[2].CostCents)
	assert.Equal(t, DailyPoint{Day: "2026-01-04"}, series[3])
	assert.Equal(t, DailyPoint{Day: "2026-01-05"}, series[4])

	var daySum, lineSum int64
	for _, pt := range series {
		daySum += pt.CostCents
	}
	for _, line := range lines {
		lineSum += line.CostCents
	}
	assert.Equal(t, lineSum, daySum)
}

// A log starting before the window is attributed to the window's first day.
func TestDailySeries_ClippedStartAttribution(t *testing.T) {
	p := reportParams()
	in := reportInputs()
	in.Logs = []model.UsageLog{{
		ID: "early", EquipmentID: "mill-1",
		StartTime: ts("2025-12-30T22:00:00Z"), EndTime: tsp("2026-01-01T02:00:00Z"),
		Status: model.StatusCompleted, SnapshotRateCents: ip(100),
	}}

	lines := BuildCostLines(in, p)
	require.Len(t, lines, 1)
	assert.Equal(t, "2026-01-01", lines[0].Day)

	series := DailySeries(lines, p.RangeStart, p.RangeEnd)
	assert.Equal(t, lines[0].CostCents, series[0].CostCents)
}

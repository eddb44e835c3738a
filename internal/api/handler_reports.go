package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipment-usage-backend/internal/export"
	"equipment-usage-backend/internal/usage"
)

// costReportResponse bundles the three views of one report invocation. All
// three are computed from the same lines with the same clock reading, so the
// table, the summary and the trend chart can never disagree.
type costReportResponse struct {
	Lines  []usage.CostLine   `json:"lines"`
	Groups []usage.CostGroup  `json:"groups"`
	Daily  []usage.DailyPoint `json:"daily"`
}

// reportParams parses the shared report query parameters. The clock is read
// exactly once here and threaded through every engine call.
func (h *Handler) reportParams(c *gin.Context) (usage.ReportParams, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return usage.ReportParams{}, fmt.Errorf("invalid 'from' timestamp, use RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return usage.ReportParams{}, fmt.Errorf("invalid 'to' timestamp, use RFC3339")
	}
	if !to.After(from) {
		return usage.ReportParams{}, fmt.Errorf("'to' must be after 'from'")
	}

	return usage.ReportParams{
		RangeStart:        from,
		RangeEnd:          to,
		ProjectID:         c.DefaultQuery("project", usage.AllProjects),
		IncludeUnlinked:   c.DefaultQuery("include_unlinked", "true") == "true",
		IncludeInProgress: c.DefaultQuery("include_in_progress", "true") == "true",
		Now:               time.Now().UTC(),
		Labels: usage.Labels{
			Unlinked:      c.DefaultQuery("unlinked_label", h.report.UnlinkedLabel),
			Uncategorized: c.DefaultQuery("uncategorized_label", h.report.UncategorizedLabel),
		},
	}, nil
}

// GetCostReport handles GET /api/reports/cost.
func (h *Handler) GetCostReport(c *gin.Context) {
	p, err := h.reportParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := h.store.ReportInputs(c.Request.Context(), p.RangeStart, p.RangeEnd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report inputs"})
		return
	}

	lines := usage.BuildCostLines(in, p)
	groups, err := usage.GroupLines(lines, usage.GroupBy(c.DefaultQuery("group_by", string(usage.GroupByEquipment))), p.Labels)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, costReportResponse{
		Lines:  lines,
		Groups: groups,
		Daily:  usage.DailySeries(lines, p.RangeStart, p.RangeEnd),
	})
}

// ExportCostReport handles GET /api/reports/cost/export.
func (h *Handler) ExportCostReport(c *gin.Context) {
	p, err := h.reportParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := h.store.ReportInputs(c.Request.Context(), p.RangeStart, p.RangeEnd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report inputs"})
		return
	}

	lines := usage.BuildCostLines(in, p)

	filename := fmt.Sprintf("usage-cost-%s-%s.csv",
		p.RangeStart.UTC().Format("20060102"), p.RangeEnd.UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "text/csv")
	if err := export.WriteLines(c.Writer, lines); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
	}
}

// GetUtilization handles GET /api/reports/utilization.
func (h *Handler) GetUtilization(c *gin.Context) {
	p, err := h.reportParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in, err := h.store.ReportInputs(c.Request.Context(), p.RangeStart, p.RangeEnd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report inputs"})
		return
	}

	equipment, err := h.store.ListEquipment(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
		return
	}

	report := usage.Utilization(in.Logs, len(equipment), p.RangeStart, p.RangeEnd, p.Now)
	c.JSON(http.StatusOK, gin.H{
		"occupied_seconds": int64(report.Occupied.Seconds()),
		"capacity_seconds": int64(report.Capacity.Seconds()),
		"ratio":            report.Ratio,
	})
}

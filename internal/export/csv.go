package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"equipment-usage-backend/internal/usage"
)

var header = []string{
	"log_id", "equipment", "category", "project", "user",
	"start", "end", "billable_hours", "hourly_rate_cents",
	"rate_source", "cost_cents", "estimated",
}

// WriteLines renders cost lines as CSV. The rows carry exactly the values
// the engine computed; drill-down table, export and dashboard all read the
// same lines, so the file matches the screen.
func WriteLines(w io.Writer, lines []usage.CostLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, line := range lines {
		category := ""
		if line.Category != nil {
			category = *line.Category
		}
		row := []string{
			line.LogID,
			line.EquipmentName,
			category,
			line.ProjectName,
			line.UserName,
			line.Start.UTC().Format(time.RFC3339),
			line.End.UTC().Format(time.RFC3339),
			strconv.FormatInt(line.BillableHours, 10),
			strconv.FormatInt(line.HourlyRateCents, 10),
			string(line.RateSource),
			strconv.FormatInt(line.CostCents, 10),
			strconv.FormatBool(line.Estimated),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

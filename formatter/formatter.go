package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"shift-scheduler/models"
)

// Report holds prepared plan data used by all formatters
type Report struct {
	Summary Summary      `json:"summary" yaml:"summary"`
	Hours   []HourlyData `json:"hours" yaml:"hours"`
}

// Summary is the run-wide slot accounting.
type Summary struct {
	Requested int     `json:"requested" yaml:"requested"`
	Assigned  int     `json:"assigned" yaml:"assigned"`
	Unmet     int     `json:"unmet" yaml:"unmet"`
	Coverage  float64 `json:"coverage" yaml:"coverage"`
}

// HourlyData groups an hour's committed and open slots
type HourlyData struct {
	Hour        int                 `json:"hour" yaml:"hour"`
	Window      models.TimeWindow   `json:"window" yaml:"window"`
	Requested   int                 `json:"requested" yaml:"requested"`
	Assignments []models.Assignment `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	Unmet       []models.UnmetSlot  `json:"unmet,omitempty" yaml:"unmet,omitempty"`
}

// prepareReport organizes plan data by hour for formatting. Windows are taken
// from the slots themselves, so hours with no slots fall back to partition.
func prepareReport(plan *models.Plan, partition models.Partition) *Report {
	hours := make([]HourlyData, 24)
	for h := range 24 {
		hours[h].Hour = h
		if win, err := partition.WindowForHour(h); err == nil {
			hours[h].Window = win
		}
	}

	for _, a := range plan.Assignments {
		hd := &hours[a.Hour]
		hd.Window = a.Window
		hd.Assignments = append(hd.Assignments, a)
		hd.Requested++
	}
	for _, u := range plan.Unmet {
		hd := &hours[u.Hour]
		hd.Window = u.Window
		hd.Unmet = append(hd.Unmet, u)
		hd.Requested++
	}

	return &Report{
		Summary: Summary{
			Requested: plan.Requested,
			Assigned:  len(plan.Assignments),
			Unmet:     len(plan.Unmet),
			Coverage:  plan.Coverage(),
		},
		Hours: hours,
	}
}

// FormatText returns the text representation of the plan
func FormatText(plan *models.Plan, partition models.Partition) string {
	data := prepareReport(plan, partition)
	var sb strings.Builder

	for _, hourData := range data.Hours {
		sb.WriteString(formatTextLine(hourData))
		sb.WriteString("\n")

		if len(hourData.Unmet) > 0 {
			sb.WriteString(fmt.Sprintf("  ⚠️  CAPACITY WARNING: Requested=%d, Assigned=%d, Unmet=%d\n",
				hourData.Requested, len(hourData.Assignments), len(hourData.Unmet)))
			sb.WriteString("  Open slots:\n")
			for _, u := range hourData.Unmet {
				sb.WriteString(fmt.Sprintf("    • slot %d [%s]%s\n", u.Index, u.Tier, fixedMark(u.Fixed)))
			}
		}
	}

	s := data.Summary
	sb.WriteString(fmt.Sprintf("summary : requested=%d, assigned=%d, unmet=%d, coverage=%.1f%%\n",
		s.Requested, s.Assigned, s.Unmet, s.Coverage*100))
	return sb.String()
}

// FormatJSON returns the JSON representation of the plan
func FormatJSON(plan *models.Plan, partition models.Partition) string {
	data := prepareReport(plan, partition)
	jsonBytes, _ := json.MarshalIndent(data, "", "  ")
	return string(jsonBytes)
}

// FormatYAML returns the YAML representation of the plan
func FormatYAML(plan *models.Plan, partition models.Partition) string {
	data := prepareReport(plan, partition)
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	_ = enc.Encode(data)
	_ = enc.Close()
	return sb.String()
}

// FormatCSV returns the CSV representation of the plan, one row per hour
func FormatCSV(plan *models.Plan, partition models.Partition) string {
	data := prepareReport(plan, partition)
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	writer.Write([]string{
		"Hour", "Window", "Requested", "Assigned", "Workers",
		"Capacity Warning", "Unmet", "Open Slots",
	})

	for _, hourData := range data.Hours {
		writeHourToCSV(writer, hourData)
	}

	writer.Flush()
	return sb.String()
}

// writeHourToCSV writes a single hour's data to CSV
func writeHourToCSV(writer *csv.Writer, hourData HourlyData) {
	row := []string{
		fmt.Sprintf("%02d:00", hourData.Hour),
		hourData.Window.String(),
		fmt.Sprintf("%d", hourData.Requested),
		fmt.Sprintf("%d", len(hourData.Assignments)),
	}

	// "101(LEVEL3*,total=5); 7(LEVEL2,total=2)"
	var workers []string
	for _, a := range hourData.Assignments {
		workers = append(workers, fmt.Sprintf("%d(%s%s,total=%d)", a.WorkerCode, a.SlotTier, fixedMark(a.Fixed), a.WorkerTotal))
	}
	row = append(row, strings.Join(workers, "; "))

	if len(hourData.Unmet) == 0 {
		row = append(row, "No", "", "")
		writer.Write(row)
		return
	}

	var open []string
	for _, u := range hourData.Unmet {
		open = append(open, fmt.Sprintf("%d(%s%s)", u.Index, u.Tier, fixedMark(u.Fixed)))
	}
	row = append(row, "Yes", fmt.Sprintf("%d", len(hourData.Unmet)), strings.Join(open, "; "))
	writer.Write(row)
}

// formatTextLine formats a single hour line for text output
func formatTextLine(data HourlyData) string {
	if data.Requested == 0 {
		return fmt.Sprintf("%02d:00 %-9s : requested=0 ; none", data.Hour, data.Window)
	}

	parts := make([]string, 0, len(data.Assignments))
	for _, a := range data.Assignments {
		parts = append(parts, fmt.Sprintf("%d=%s%s(total=%d)", a.WorkerCode, a.SlotTier, fixedMark(a.Fixed), a.WorkerTotal))
	}
	return fmt.Sprintf("%02d:00 %-9s : requested=%d, assigned=%d ; [%s]",
		data.Hour, data.Window, data.Requested, len(data.Assignments), strings.Join(parts, ", "))
}

func fixedMark(fixed bool) string {
	if fixed {
		return "*"
	}
	return ""
}

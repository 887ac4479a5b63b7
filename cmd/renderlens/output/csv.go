// csv.go — Spreadsheet rendering: one row per component or per changed key.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/brennhill/renderlens/internal/types"
)

var (
	componentHeader = []string{
		"component_id", "name", "depth", "renders", "avg_ms", "max_ms", "slow_renders", "suggestions", "top_suggestion",
	}
	changeHeader = []string{"key", "reason", "old_value", "new_value"}
)

// CSVFormatter writes a header and one record per component or change.
// Session status is left to the exit code.
type CSVFormatter struct{}

// Replay writes one record per component summary.
func (CSVFormatter) Replay(w io.Writer, r *ReplayReport) error {
	records := make([][]string, 0, len(r.Components))
	for _, c := range r.Components {
		top := ""
		if len(c.Suggestions) > 0 {
			top = c.Suggestions[0].Title
		}
		records = append(records, []string{
			c.ComponentID,
			c.Name,
			strconv.Itoa(c.Depth),
			strconv.Itoa(c.Renders),
			strconv.FormatFloat(c.AvgMs, 'f', 2, 64),
			strconv.FormatFloat(c.MaxMs, 'f', 2, 64),
			strconv.Itoa(c.SlowRenders),
			strconv.Itoa(len(c.Suggestions)),
			top,
		})
	}
	return writeCSV(w, componentHeader, records)
}

// Diff writes one record per change. Values are written as JSON.
func (CSVFormatter) Diff(w io.Writer, r *DiffReport) error {
	records := make([][]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		records = append(records, []string{c.Key, string(c.Reason), cell(c.OldValue), cell(c.NewValue)})
	}
	return writeCSV(w, changeHeader, records)
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write CSV rows: %w", err)
	}
	return nil
}

// cell renders a prop value as compact JSON; absent values stay empty.
func cell(v any) string {
	data, err := json.Marshal(types.DisplayValue(v))
	if err != nil || string(data) == "null" {
		return ""
	}
	return string(data)
}

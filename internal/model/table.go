package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Row is one (location, date) line of a unified table. Absent keys in
// Values are empty cells: a metric may be missing because the source
// never reported it or because the point was rejected.
type Row struct {
	Location string             `json:"location"`
	Date     string             `json:"date"`
	Values   map[string]float64 `json:"values"`
}

// UnifiedTable is the merged, analysis-ready output for one dataset:
// long format, one row per (location, date), sorted by location then
// date so identical inputs produce byte-identical output.
type UnifiedTable struct {
	Dataset string   `json:"dataset"`
	Columns []string `json:"columns"` // metric columns in export order
	Rows    []Row    `json:"rows"`
}

// Sort orders rows by (location ascending, date ascending).
func (t *UnifiedTable) Sort() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		if t.Rows[i].Location != t.Rows[j].Location {
			return t.Rows[i].Location < t.Rows[j].Location
		}
		return t.Rows[i].Date < t.Rows[j].Date
	})
}

// Value returns the cell for (location, date, metric), if present.
func (t *UnifiedTable) Value(location, date, metric string) (float64, bool) {
	for _, row := range t.Rows {
		if row.Location == location && row.Date == date {
			v, ok := row.Values[metric]
			return v, ok
		}
	}
	return 0, false
}

// Locations returns the distinct locations present in the table, in order.
func (t *UnifiedTable) Locations() []string {
	var out []string
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		if !seen[row.Location] {
			seen[row.Location] = true
			out = append(out, row.Location)
		}
	}
	return out
}

// WriteCSV renders the table as CSV: header "location,date,<columns...>",
// empty string for absent cells, float formatting with no trailing zeros.
func (t *UnifiedTable) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{"location", "date"}, t.Columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range t.Rows {
		line := make([]string, 0, len(header))
		line = append(line, row.Location, row.Date)
		for _, col := range t.Columns {
			if v, ok := row.Values[col]; ok {
				line = append(line, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				line = append(line, "")
			}
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

package model

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format for all observation dates.
const DateLayout = "2006-01-02"

// Observation is one country's reported values for a single date.
type Observation struct {
	Country   string             `json:"country"`
	Date      string             `json:"date"` // YYYY-MM-DD
	Metrics   map[string]float64 `json:"metrics"`
	Source    string             `json:"source,omitempty"`
	FetchedAt time.Time          `json:"fetched_at,omitempty"`
}

// CountryRecord is the full time series for one country, ordered by
// ascending date with no duplicate dates.
type CountryRecord struct {
	Country      string        `json:"country"`
	Observations []Observation `json:"observations"`
}

// SortByDate orders the record's observations by ascending date.
// YYYY-MM-DD strings sort lexicographically in date order.
func (r *CountryRecord) SortByDate() {
	sort.SliceStable(r.Observations, func(i, j int) bool {
		return r.Observations[i].Date < r.Observations[j].Date
	})
}

// DatasetDef describes one metric family processed as a unit.
type DatasetDef struct {
	Name         string   `json:"name"`
	Metrics      []string `json:"metrics"`      // reported columns, in export order
	Cumulative   []string `json:"cumulative"`   // subset of Metrics expected to never decrease
	Completeness []string `json:"completeness"` // subset of Metrics subject to completeness exclusion
}

// IsCumulative reports whether metric is a cumulative (monotonic) metric.
func (d DatasetDef) IsCumulative(metric string) bool {
	for _, m := range d.Cumulative {
		if m == metric {
			return true
		}
	}
	return false
}

// IsCompleteness reports whether metric is a completeness metric.
func (d DatasetDef) IsCompleteness(metric string) bool {
	for _, m := range d.Completeness {
		if m == metric {
			return true
		}
	}
	return false
}

// HasMetric reports whether metric is one of the dataset's reported columns.
func (d DatasetDef) HasMetric(metric string) bool {
	for _, m := range d.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}

// DerivedMetric returns the daily-change column derived from a cumulative
// "total_*" column, or "" if the metric has no derived counterpart.
func DerivedMetric(metric string) string {
	if rest, ok := strings.CutPrefix(metric, "total_"); ok {
		return "new_" + rest
	}
	return ""
}

// Datasets is the static registry of known metric families.
var Datasets = map[string]DatasetDef{
	"vaccinations": {
		Name: "vaccinations",
		Metrics: []string{
			"total_vaccinations",
			"people_vaccinated",
			"people_fully_vaccinated",
			"total_boosters",
		},
		Cumulative: []string{
			"total_vaccinations",
			"people_vaccinated",
			"people_fully_vaccinated",
			"total_boosters",
		},
		Completeness: []string{
			"people_fully_vaccinated",
			"total_boosters",
		},
	},
	"testing": {
		Name: "testing",
		Metrics: []string{
			"total_tests",
			"positive_rate",
		},
		Cumulative: []string{
			"total_tests",
		},
	},
	"hospitalizations": {
		Name: "hospitalizations",
		Metrics: []string{
			"hosp_patients",
			"icu_patients",
			"weekly_hosp_admissions",
			"weekly_icu_admissions",
		},
	},
}

// DatasetNames returns the known dataset names in sorted order.
func DatasetNames() []string {
	names := make([]string, 0, len(Datasets))
	for name := range Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

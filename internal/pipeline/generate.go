package pipeline

import (
	"sort"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
)

// WorldLocation is the derived global aggregate row name.
const WorldLocation = "World"

type cellKey struct {
	country string
	date    string
	metric  string
}

// Generate merges all validated country records into one long-format
// table sorted by (location, date).
//
// Rejection is per-metric: a rejected point drops only that metric's
// cell, the remaining metrics of the same (country, date) observation
// stay in the output. Completeness-excluded countries lose only their
// completeness-metric cells. Daily-change columns are derived from the
// surviving cumulative cells, and the World aggregate is computed last,
// over fully validated data only.
func Generate(
	def model.DatasetDef,
	records map[string]*model.CountryRecord,
	pol *policy.Store,
	report *model.RunReport,
) *model.UnifiedTable {
	rejected := make(map[cellKey]bool)
	for country := range records {
		for _, v := range report.RejectedFor(country) {
			rejected[cellKey{v.Country, v.Date, v.Metric}] = true
		}
	}

	table := &model.UnifiedTable{
		Dataset: def.Name,
		Columns: tableColumns(def),
	}

	countries := make([]string, 0, len(records))
	for country := range records {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	for _, country := range countries {
		record := records[country]
		completenessExcluded := pol.IsCompletenessExcluded(def.Name, country)

		for _, obs := range record.Observations {
			values := make(map[string]float64, len(obs.Metrics))
			for _, metric := range def.Metrics {
				value, ok := obs.Metrics[metric]
				if !ok {
					continue
				}
				if rejected[cellKey{country, obs.Date, metric}] {
					continue
				}
				if completenessExcluded && def.IsCompleteness(metric) {
					continue
				}
				values[metric] = value
			}
			if len(values) == 0 {
				continue
			}
			table.Rows = append(table.Rows, model.Row{
				Location: country,
				Date:     obs.Date,
				Values:   values,
			})
		}
	}

	table.Sort()
	deriveDailyChanges(def, table)
	appendWorldAggregate(table)
	table.Sort()

	return table
}

func tableColumns(def model.DatasetDef) []string {
	columns := append([]string{}, def.Metrics...)
	for _, metric := range def.Metrics {
		if !def.IsCumulative(metric) {
			continue
		}
		if derived := model.DerivedMetric(metric); derived != "" {
			columns = append(columns, derived)
		}
	}
	return columns
}

// deriveDailyChanges fills new_* columns as the difference between
// consecutive surviving total_* cells of the same location. A rejected
// cell is simply absent, so the diff spans it rather than comparing
// against anomalous data. The first surviving cell has no diff.
func deriveDailyChanges(def model.DatasetDef, table *model.UnifiedTable) {
	type lastSeen struct {
		value float64
		ok    bool
	}

	for _, metric := range def.Metrics {
		if !def.IsCumulative(metric) {
			continue
		}
		derived := model.DerivedMetric(metric)
		if derived == "" {
			continue
		}

		last := make(map[string]lastSeen)
		for i := range table.Rows {
			row := &table.Rows[i]
			value, ok := row.Values[metric]
			if !ok {
				continue
			}
			if prev := last[row.Location]; prev.ok {
				row.Values[derived] = value - prev.value
			}
			last[row.Location] = lastSeen{value: value, ok: true}
		}
	}
}

// appendWorldAggregate sums every column across countries per date and
// appends the result as World rows. It runs after all per-country
// reconciliation so aggregates are never computed from partially
// validated data.
func appendWorldAggregate(table *model.UnifiedTable) {
	type sums struct {
		total map[string]float64
		seen  map[string]bool
	}

	byDate := make(map[string]*sums)
	for _, row := range table.Rows {
		s := byDate[row.Date]
		if s == nil {
			s = &sums{total: make(map[string]float64), seen: make(map[string]bool)}
			byDate[row.Date] = s
		}
		for metric, value := range row.Values {
			s.total[metric] += value
			s.seen[metric] = true
		}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		s := byDate[date]
		values := make(map[string]float64, len(s.total))
		for metric := range s.seen {
			values[metric] = s.total[metric]
		}
		table.Rows = append(table.Rows, model.Row{
			Location: WorldLocation,
			Date:     date,
			Values:   values,
		})
	}
}

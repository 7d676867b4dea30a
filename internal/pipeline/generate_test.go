package pipeline

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
)

func emptyPolicy(t *testing.T, dataset string) *policy.Store {
	t.Helper()
	store, err := policy.Parse([]byte("pipeline:\n  " + dataset + ": {}\n"))
	require.NoError(t, err)
	return store
}

func generateFixture(t *testing.T) *model.UnifiedTable {
	t.Helper()
	pol := emptyPolicy(t, "vaccinations")
	def := model.Datasets["vaccinations"]

	records := map[string]*model.CountryRecord{
		"Albania": vaxRecord("Albania",
			obs("Albania", "2021-01-01", map[string]float64{"total_vaccinations": 100, "people_vaccinated": 80}),
			obs("Albania", "2021-01-02", map[string]float64{"total_vaccinations": 150, "people_vaccinated": 120}),
		),
		"Brazil": vaxRecord("Brazil",
			obs("Brazil", "2021-01-01", map[string]float64{"total_vaccinations": 1000}),
			obs("Brazil", "2021-01-02", map[string]float64{"total_vaccinations": 900}),
			obs("Brazil", "2021-01-03", map[string]float64{"total_vaccinations": 1100}),
		),
	}

	report := model.NewRunReport("run-1", "vaccinations")
	report.AddVerdicts([]model.Verdict{{
		Country:   "Brazil",
		Date:      "2021-01-02",
		Metric:    "total_vaccinations",
		Status:    model.VerdictRejected,
		Violation: model.ViolationMonotonicDecrease,
	}})

	return Generate(def, records, pol, report)
}

func TestGenerate_GoldenOutput(t *testing.T) {
	table := generateFixture(t)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	g := goldie.New(t)
	g.Assert(t, "unified_table", buf.Bytes())
}

func TestGenerate_Idempotent(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, generateFixture(t).WriteCSV(&first))
	require.NoError(t, generateFixture(t).WriteCSV(&second))
	assert.Equal(t, first.Bytes(), second.Bytes(), "identical input must yield byte-identical output")
}

func TestGenerate_RejectionIsPerMetric(t *testing.T) {
	pol := emptyPolicy(t, "vaccinations")
	def := model.Datasets["vaccinations"]

	records := map[string]*model.CountryRecord{
		"Brazil": vaxRecord("Brazil",
			obs("Brazil", "2021-01-22", map[string]float64{
				"total_vaccinations": 350,
				"people_vaccinated":  320,
			}),
		),
	}
	report := model.NewRunReport("run-1", "vaccinations")
	report.AddVerdicts([]model.Verdict{{
		Country:   "Brazil",
		Date:      "2021-01-22",
		Metric:    "total_vaccinations",
		Status:    model.VerdictRejected,
		Violation: model.ViolationMonotonicDecrease,
	}})

	table := Generate(def, records, pol, report)

	_, ok := table.Value("Brazil", "2021-01-22", "total_vaccinations")
	assert.False(t, ok, "rejected cell must be absent")

	v, ok := table.Value("Brazil", "2021-01-22", "people_vaccinated")
	require.True(t, ok, "other metrics of the same observation survive")
	assert.Equal(t, 320.0, v)
}

func TestGenerate_CompletenessExclusionDropsOnlyCompletenessMetrics(t *testing.T) {
	pol, err := policy.Parse([]byte(`
pipeline:
  vaccinations:
    process:
      skip_complete: [Eritrea]
`))
	require.NoError(t, err)
	def := model.Datasets["vaccinations"]

	records := map[string]*model.CountryRecord{
		"Eritrea": vaxRecord("Eritrea",
			obs("Eritrea", "2021-01-01", map[string]float64{
				"total_vaccinations":      100,
				"people_vaccinated":       90,
				"people_fully_vaccinated": 40,
				"total_boosters":          5,
			}),
		),
	}

	table := Generate(def, records, pol, model.NewRunReport("run-1", "vaccinations"))

	_, ok := table.Value("Eritrea", "2021-01-01", "people_fully_vaccinated")
	assert.False(t, ok)
	_, ok = table.Value("Eritrea", "2021-01-01", "total_boosters")
	assert.False(t, ok)

	v, ok := table.Value("Eritrea", "2021-01-01", "total_vaccinations")
	require.True(t, ok, "non-completeness metrics are kept")
	assert.Equal(t, 100.0, v)
}

func TestGenerate_DerivedDailyChangesSkipRejectedCells(t *testing.T) {
	table := generateFixture(t)

	// Brazil 01-02 was rejected: the diff spans the gap, 1100 - 1000.
	v, ok := table.Value("Brazil", "2021-01-03", "new_vaccinations")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	// First surviving cell has no diff.
	_, ok = table.Value("Brazil", "2021-01-01", "new_vaccinations")
	assert.False(t, ok)
}

func TestGenerate_WorldAggregateFromValidatedDataOnly(t *testing.T) {
	table := generateFixture(t)

	// 2021-01-02: Brazil's rejected total is excluded, only Albania counts.
	v, ok := table.Value("World", "2021-01-02", "total_vaccinations")
	require.True(t, ok)
	assert.Equal(t, 150.0, v)

	v, ok = table.Value("World", "2021-01-01", "total_vaccinations")
	require.True(t, ok)
	assert.Equal(t, 1100.0, v)
}

func TestGenerate_DeterministicOrdering(t *testing.T) {
	table := generateFixture(t)

	assert.Equal(t, []string{"Albania", "Brazil", "World"}, table.Locations())

	// Rows within a location are date-ascending.
	var prev model.Row
	for i, row := range table.Rows {
		if i > 0 && row.Location == prev.Location {
			assert.Less(t, prev.Date, row.Date)
		}
		prev = row
	}
}

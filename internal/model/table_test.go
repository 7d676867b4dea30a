package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedTable_Sort(t *testing.T) {
	table := &UnifiedTable{
		Dataset: "vaccinations",
		Columns: []string{"total_vaccinations"},
		Rows: []Row{
			{Location: "World", Date: "2021-01-01"},
			{Location: "Albania", Date: "2021-01-02"},
			{Location: "Albania", Date: "2021-01-01"},
			{Location: "Brazil", Date: "2021-01-01"},
		},
	}
	table.Sort()

	got := make([][2]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		got = append(got, [2]string{row.Location, row.Date})
	}
	assert.Equal(t, [][2]string{
		{"Albania", "2021-01-01"},
		{"Albania", "2021-01-02"},
		{"Brazil", "2021-01-01"},
		{"World", "2021-01-01"},
	}, got)
}

func TestUnifiedTable_WriteCSV(t *testing.T) {
	table := &UnifiedTable{
		Dataset: "testing",
		Columns: []string{"total_tests", "positive_rate"},
		Rows: []Row{
			{Location: "Kenya", Date: "2021-01-01", Values: map[string]float64{
				"total_tests":   12000,
				"positive_rate": 0.051,
			}},
			{Location: "Kenya", Date: "2021-01-02", Values: map[string]float64{
				"total_tests": 12500,
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	want := "location,date,total_tests,positive_rate\n" +
		"Kenya,2021-01-01,12000,0.051\n" +
		"Kenya,2021-01-02,12500,\n"
	assert.Equal(t, want, buf.String(), "absent cells render empty, floats without trailing zeros")
}

func TestUnifiedTable_ValueAndLocations(t *testing.T) {
	table := &UnifiedTable{
		Columns: []string{"total_tests"},
		Rows: []Row{
			{Location: "Kenya", Date: "2021-01-01", Values: map[string]float64{"total_tests": 12000}},
			{Location: "Peru", Date: "2021-01-01", Values: map[string]float64{}},
		},
	}

	v, ok := table.Value("Kenya", "2021-01-01", "total_tests")
	require.True(t, ok)
	assert.Equal(t, 12000.0, v)

	_, ok = table.Value("Peru", "2021-01-01", "total_tests")
	assert.False(t, ok)
	_, ok = table.Value("Kenya", "2021-01-02", "total_tests")
	assert.False(t, ok)

	assert.Equal(t, []string{"Kenya", "Peru"}, table.Locations())
}

func TestDerivedMetric(t *testing.T) {
	assert.Equal(t, "new_vaccinations", DerivedMetric("total_vaccinations"))
	assert.Equal(t, "new_boosters", DerivedMetric("total_boosters"))
	assert.Equal(t, "", DerivedMetric("people_vaccinated"))
	assert.Equal(t, "", DerivedMetric("positive_rate"))
}

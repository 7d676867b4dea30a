package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-data-pipeline/internal/model"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fetcherFor(country, srcType, url string) *SourceFetcher {
	return New(map[string][]SourceSpec{
		"vaccinations": {{Country: country, Type: srcType, URL: url}},
	})
}

func TestLoadSources(t *testing.T) {
	path := writeSource(t, "sources.yaml", `
vaccinations:
  - country: Brazil
    type: csv
    url: testdata/brazil.csv
testing:
  - country: Kenya
    type: json
    url: https://example.org/kenya.json
`)
	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources["vaccinations"], 1)
	assert.Equal(t, "Brazil", sources["vaccinations"][0].Country)
	assert.Equal(t, "json", sources["testing"][0].Type)
}

func TestLoadSources_UnknownDataset(t *testing.T) {
	path := writeSource(t, "sources.yaml", "moonphases:\n  - country: Brazil\n    type: csv\n    url: x.csv\n")
	_, err := LoadSources(path)
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestLoadSources_UnknownCountry(t *testing.T) {
	path := writeSource(t, "sources.yaml", "vaccinations:\n  - country: Atlantis\n    type: csv\n    url: x.csv\n")
	_, err := LoadSources(path)
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestFetch_CSV(t *testing.T) {
	path := writeSource(t, "brazil.csv", `date,total_vaccinations,people_vaccinated
2021-01-21,400,
2021-01-20,500,300
`)
	f := fetcherFor("Brazil", "csv", path)

	record, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.NoError(t, err)
	require.Len(t, record.Observations, 2)

	// Sorted by date regardless of source order.
	assert.Equal(t, "2021-01-20", record.Observations[0].Date)
	assert.Equal(t, 500.0, record.Observations[0].Metrics["total_vaccinations"])
	assert.Equal(t, 300.0, record.Observations[0].Metrics["people_vaccinated"])

	// Empty cell means the metric is absent, not zero.
	_, ok := record.Observations[1].Metrics["people_vaccinated"]
	assert.False(t, ok)
}

func TestFetch_CSVDuplicateDates(t *testing.T) {
	path := writeSource(t, "brazil.csv", `date,total_vaccinations
2021-01-20,500
2021-01-20,510
`)
	f := fetcherFor("Brazil", "csv", path)

	_, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
	assert.Contains(t, err.Error(), "duplicate date")
}

func TestFetch_CSVNegativeValue(t *testing.T) {
	path := writeSource(t, "brazil.csv", `date,total_vaccinations
2021-01-20,-5
`)
	f := fetcherFor("Brazil", "csv", path)

	_, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
	assert.Contains(t, err.Error(), "negative value")
}

func TestFetch_CSVMissingDateColumn(t *testing.T) {
	path := writeSource(t, "brazil.csv", "day,total_vaccinations\n2021-01-20,5\n")
	f := fetcherFor("Brazil", "csv", path)

	_, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
}

func TestFetch_JSON(t *testing.T) {
	path := writeSource(t, "kenya.json", `[
  {"date": "2021-01-21", "total_vaccinations": 410, "source_url": "https://example.org"},
  {"date": "2021-01-20", "total_vaccinations": 400}
]`)
	f := fetcherFor("Kenya", "json", path)

	record, err := f.Fetch(context.Background(), "vaccinations", "Kenya")
	require.NoError(t, err)
	require.Len(t, record.Observations, 2)
	assert.Equal(t, "2021-01-20", record.Observations[0].Date)

	// Non-numeric fields are dropped, not errors.
	_, ok := record.Observations[1].Metrics["source_url"]
	assert.False(t, ok)
	assert.Equal(t, 410.0, record.Observations[1].Metrics["total_vaccinations"])
}

func TestFetch_JSONMalformedDate(t *testing.T) {
	path := writeSource(t, "kenya.json", `[{"date": "21/01/2021", "total_vaccinations": 400}]`)
	f := fetcherFor("Kenya", "json", path)

	_, err := f.Fetch(context.Background(), "vaccinations", "Kenya")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
}

func TestFetch_NoRegisteredSource(t *testing.T) {
	f := New(nil)
	_, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
}

func TestFetch_RetriesTransportFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("date,total_vaccinations\n2021-01-20,500\n"))
	}))
	defer server.Close()

	f := fetcherFor("Brazil", "csv", server.URL)
	f.retryDelay = time.Millisecond

	record, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	require.Len(t, record.Observations, 1)
}

func TestFetch_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := fetcherFor("Brazil", "csv", server.URL)
	f.retryDelay = time.Millisecond
	f.maxRetries = 1

	_, err := f.Fetch(context.Background(), "vaccinations", "Brazil")
	require.Error(t, err)
	assert.True(t, model.IsFetchError(err))
	assert.Contains(t, err.Error(), "after 2 attempts")
}

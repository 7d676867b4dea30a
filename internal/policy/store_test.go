package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-data-pipeline/internal/model"
)

const baseConfig = `
pipeline:
  vaccinations:
    get:
      skip_countries: [Gabon]
    process:
      skip_complete: [Eritrea]
      skip_monotonic_check: [Nepal]
      skip_anomaly_check:
        Brazil:
          - date: 2021-01-21
            metrics: total_vaccinations
        France:
          - date: 2021-05-20
            metrics: [total_vaccinations, people_vaccinated]
`

func TestParse_BaseConfig(t *testing.T) {
	store, err := Parse([]byte(baseConfig))
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, []string{"vaccinations"}, store.Datasets())
}

func TestParse_SingleMetricNormalizedToSet(t *testing.T) {
	store, err := Parse([]byte(baseConfig))
	require.NoError(t, err)

	// Scalar metric value and list value both come out as sets.
	brazil := store.OverridesFor("vaccinations", "Brazil", "2021-01-21")
	assert.True(t, brazil["total_vaccinations"])
	assert.Len(t, brazil, 1)

	france := store.OverridesFor("vaccinations", "France", "2021-05-20")
	assert.True(t, france["total_vaccinations"])
	assert.True(t, france["people_vaccinated"])
	assert.Len(t, france, 2)
}

func TestParse_UnknownDataset(t *testing.T) {
	_, err := Parse([]byte("pipeline:\n  moonphases:\n    get: {}\n"))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestParse_UnknownCountryInSkipList(t *testing.T) {
	_, err := Parse([]byte("pipeline:\n  vaccinations:\n    get:\n      skip_countries: [Atlantis]\n"))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestParse_UnknownCountryInOverrides(t *testing.T) {
	cfg := `
pipeline:
  vaccinations:
    process:
      skip_anomaly_check:
        Narnia:
          - date: 2021-01-21
            metrics: total_vaccinations
`
	_, err := Parse([]byte(cfg))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestParse_MalformedOverrideDate(t *testing.T) {
	cfg := `
pipeline:
  vaccinations:
    process:
      skip_anomaly_check:
        Brazil:
          - date: 21/01/2021
            metrics: total_vaccinations
`
	_, err := Parse([]byte(cfg))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestParse_OverrideWithoutMetrics(t *testing.T) {
	cfg := `
pipeline:
  vaccinations:
    process:
      skip_anomaly_check:
        Brazil:
          - date: 2021-01-21
`
	_, err := Parse([]byte(cfg))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

func TestParse_UnknownDatasetLevelKeysIgnored(t *testing.T) {
	cfg := `
pipeline:
  vaccinations:
    get:
      skip_countries: [Gabon]
    publish:
      target: s3
`
	store, err := Parse([]byte(cfg))
	require.NoError(t, err)
	assert.True(t, store.IsCountryExcluded("vaccinations", "Gabon"))
}

func TestStore_Queries(t *testing.T) {
	store, err := Parse([]byte(baseConfig))
	require.NoError(t, err)

	assert.True(t, store.IsCountryExcluded("vaccinations", "Gabon"))
	assert.False(t, store.IsCountryExcluded("vaccinations", "Brazil"))

	assert.True(t, store.IsMonotonicityRelaxed("vaccinations", "Nepal"))
	assert.False(t, store.IsMonotonicityRelaxed("vaccinations", "Brazil"))

	assert.True(t, store.IsCompletenessExcluded("vaccinations", "Eritrea"))
	assert.False(t, store.IsCompletenessExcluded("vaccinations", "Nepal"))

	// Override matching is exact on date.
	assert.Empty(t, store.OverridesFor("vaccinations", "Brazil", "2021-01-22"))
	assert.Empty(t, store.OverridesFor("vaccinations", "France", "2021-01-21"))
	assert.Empty(t, store.OverridesFor("testing", "Brazil", "2021-01-21"))
}

func TestStore_AllowList(t *testing.T) {
	cfg := `
pipeline:
  testing:
    get:
      countries: [Peru, Chile]
`
	store, err := Parse([]byte(cfg))
	require.NoError(t, err)

	assert.Equal(t, []string{"Chile", "Peru"}, store.AllowList("testing"))
	assert.False(t, store.IsCountryExcluded("testing", "Peru"))
	assert.True(t, store.IsCountryExcluded("testing", "Brazil"), "countries outside the allow-list are excluded")
	assert.Nil(t, store.AllowList("vaccinations"))
}

func TestKnownCountry(t *testing.T) {
	assert.True(t, KnownCountry("Brazil"))
	assert.True(t, KnownCountry("Gabon"))
	assert.False(t, KnownCountry("Atlantis"))
}

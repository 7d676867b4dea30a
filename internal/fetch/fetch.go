// Package fetch implements the per-country Fetcher collaborator: it
// retrieves one country's raw time series from a CSV or JSON source
// over HTTP or from a local file, with bounded retry on transport
// failures, and normalizes it into a CountryRecord.
package fetch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
)

// SourceSpec describes one country's raw data source for a dataset.
type SourceSpec struct {
	Country string `yaml:"country" json:"country"`
	Type    string `yaml:"type" json:"type"` // csv or json
	URL     string `yaml:"url" json:"url"`   // http(s) URL or local file path
}

// LoadSources reads the dataset → sources mapping from a YAML file.
// Unrecognized country names are a ConfigError, same as the policy file.
func LoadSources(path string) (map[string][]SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	var sources map[string][]SourceSpec
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, &model.ConfigError{Message: fmt.Sprintf("invalid sources YAML: %v", err)}
	}
	for dataset, specs := range sources {
		if _, ok := model.Datasets[dataset]; !ok {
			return nil, &model.ConfigError{Dataset: dataset, Message: "unknown dataset in sources"}
		}
		for _, spec := range specs {
			if !policy.KnownCountry(spec.Country) {
				return nil, &model.ConfigError{
					Dataset: dataset,
					Field:   "sources",
					Message: fmt.Sprintf("unrecognized country %q", spec.Country),
				}
			}
		}
	}
	return sources, nil
}

// SourceFetcher fetches per-country sources and implements
// pipeline.Fetcher. Safe for concurrent use.
type SourceFetcher struct {
	client     *http.Client
	sources    map[string]map[string]SourceSpec // dataset -> country -> spec
	maxRetries int
	retryDelay time.Duration
}

// New creates a fetcher over the given source registry.
func New(sources map[string][]SourceSpec) *SourceFetcher {
	byCountry := make(map[string]map[string]SourceSpec)
	for dataset, specs := range sources {
		byCountry[dataset] = make(map[string]SourceSpec, len(specs))
		for _, spec := range specs {
			byCountry[dataset][spec.Country] = spec
		}
	}
	return &SourceFetcher{
		client:     &http.Client{Timeout: 60 * time.Second},
		sources:    byCountry,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// Countries lists the countries with a registered source, sorted.
func (f *SourceFetcher) Countries(dataset string) []string {
	var out []string
	for country := range f.sources[dataset] {
		out = append(out, country)
	}
	sort.Strings(out)
	return out
}

// Fetch retrieves and parses one country's record. Transport failures
// are retried with exponential backoff; parse failures are not, since
// re-reading a malformed source cannot fix it.
func (f *SourceFetcher) Fetch(ctx context.Context, dataset, country string) (*model.CountryRecord, error) {
	spec, ok := f.sources[dataset][country]
	if !ok {
		return nil, &model.FetchError{Country: country, Err: fmt.Errorf("no source registered")}
	}

	raw, err := f.readWithRetry(ctx, spec.URL)
	if err != nil {
		return nil, &model.FetchError{Country: country, Source: spec.URL, Err: err}
	}

	var observations []model.Observation
	switch strings.ToLower(spec.Type) {
	case "csv":
		observations, err = parseCSV(country, spec.URL, raw)
	case "json":
		observations, err = parseJSON(country, spec.URL, raw)
	default:
		err = fmt.Errorf("unknown source type: %s", spec.Type)
	}
	if err != nil {
		return nil, &model.FetchError{Country: country, Source: spec.URL, Err: err}
	}

	record := &model.CountryRecord{Country: country, Observations: observations}
	record.SortByDate()
	if err := checkUniqueDates(record); err != nil {
		return nil, &model.FetchError{Country: country, Source: spec.URL, Err: err}
	}
	return record, nil
}

func (f *SourceFetcher) readWithRetry(ctx context.Context, pathOrURL string) ([]byte, error) {
	delay := f.retryDelay
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		data, err := f.read(ctx, pathOrURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.maxRetries+1, lastErr)
}

func (f *SourceFetcher) read(ctx context.Context, pathOrURL string) ([]byte, error) {
	if !strings.HasPrefix(pathOrURL, "http") {
		return os.ReadFile(pathOrURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathOrURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", pathOrURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseCSV expects a header row with a "date" column; every other
// column is treated as a metric. Empty cells are absent metrics.
func parseCSV(country, source string, raw []byte) ([]model.Observation, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	dateCol := -1
	for i, h := range headers {
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		if headers[i] == "date" {
			dateCol = i
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("CSV has no date column")
	}

	fetchedAt := time.Now().UTC()
	var observations []model.Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}
		obs, err := buildObservation(country, source, fetchedAt, headers, dateCol, record)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func buildObservation(country, source string, fetchedAt time.Time, headers []string, dateCol int, record []string) (model.Observation, error) {
	obs := model.Observation{
		Country:   country,
		Metrics:   make(map[string]float64),
		Source:    source,
		FetchedAt: fetchedAt,
	}
	for i, cell := range record {
		if i >= len(headers) {
			break
		}
		cell = strings.TrimSpace(cell)
		if i == dateCol {
			if _, err := time.Parse(model.DateLayout, cell); err != nil {
				return obs, fmt.Errorf("malformed date %q", cell)
			}
			obs.Date = cell
			continue
		}
		if cell == "" {
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return obs, fmt.Errorf("non-numeric value %q for %s", cell, headers[i])
		}
		if value < 0 {
			return obs, fmt.Errorf("negative value %v for %s", value, headers[i])
		}
		obs.Metrics[headers[i]] = value
	}
	if obs.Date == "" {
		return obs, fmt.Errorf("row missing date")
	}
	return obs, nil
}

// parseJSON expects an array of objects with a "date" field; every
// other numeric field is a metric.
func parseJSON(country, source string, raw []byte) ([]model.Observation, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	fetchedAt := time.Now().UTC()
	var observations []model.Observation
	for _, row := range rows {
		obs := model.Observation{
			Country:   country,
			Metrics:   make(map[string]float64),
			Source:    source,
			FetchedAt: fetchedAt,
		}
		for key, value := range row {
			if key == "date" {
				date, ok := value.(string)
				if !ok {
					return nil, fmt.Errorf("non-string date %v", value)
				}
				if _, err := time.Parse(model.DateLayout, date); err != nil {
					return nil, fmt.Errorf("malformed date %q", date)
				}
				obs.Date = date
				continue
			}
			num, ok := value.(float64)
			if !ok {
				continue // non-numeric fields are provenance noise, not metrics
			}
			if num < 0 {
				return nil, fmt.Errorf("negative value %v for %s", num, key)
			}
			obs.Metrics[key] = num
		}
		if obs.Date == "" {
			return nil, fmt.Errorf("row missing date")
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func checkUniqueDates(record *model.CountryRecord) error {
	for i := 1; i < len(record.Observations); i++ {
		if record.Observations[i].Date == record.Observations[i-1].Date {
			return fmt.Errorf("duplicate date %s", record.Observations[i].Date)
		}
	}
	return nil
}

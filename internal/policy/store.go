// Package policy builds the immutable, process-wide policy lookup
// structures from declarative configuration: per-dataset country
// exclusions, monotonicity relaxations, completeness exclusions, and
// pointwise anomaly overrides.
//
// A Store is built once at load time and is read-only afterwards, so it
// is safe for concurrent access by every later pipeline stage.
package policy

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"health-data-pipeline/internal/model"
)

// metricList accepts either a single metric name or a sequence of names
// and normalizes to a slice. Nothing past the load boundary sees the
// flexible input shape.
type metricList []string

func (m *metricList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*m = metricList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*m = metricList(many)
		return nil
	default:
		return fmt.Errorf("metrics must be a name or a list of names")
	}
}

type rawOverride struct {
	Date    string     `yaml:"date"`
	Metrics metricList `yaml:"metrics"`
}

type rawDataset struct {
	Get struct {
		Countries     []string `yaml:"countries"`
		SkipCountries []string `yaml:"skip_countries"`
	} `yaml:"get"`
	Process struct {
		SkipComplete       []string                 `yaml:"skip_complete"`
		SkipMonotonicCheck []string                 `yaml:"skip_monotonic_check"`
		SkipAnomalyCheck   map[string][]rawOverride `yaml:"skip_anomaly_check"`
	} `yaml:"process"`
	// generate/export sections carry no policy today; unknown keys
	// anywhere at dataset level are ignored for forward compatibility.
}

type rawConfig struct {
	Pipeline map[string]rawDataset `yaml:"pipeline"`
}

type overrideKey struct {
	country string
	date    string
}

type datasetPolicy struct {
	allowList            []string // optional; nil means no allow-list
	excluded             map[string]bool
	relaxed              map[string]bool
	completenessExcluded map[string]bool
	overrides            map[overrideKey]map[string]bool
}

// Store holds the per-dataset policy lookups. Immutable after Load.
type Store struct {
	datasets map[string]*datasetPolicy
}

// Load reads and parses the pipeline configuration file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Store from raw YAML configuration. It fails with a
// ConfigError if a dataset name is unknown, a referenced country is
// unrecognized, an override date is malformed, or an override lists no
// metrics.
func Parse(data []byte) (*Store, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &model.ConfigError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	store := &Store{datasets: make(map[string]*datasetPolicy)}

	for name, ds := range raw.Pipeline {
		if _, ok := model.Datasets[name]; !ok {
			return nil, &model.ConfigError{Dataset: name, Message: "unknown dataset"}
		}

		pol := &datasetPolicy{
			excluded:             make(map[string]bool),
			relaxed:              make(map[string]bool),
			completenessExcluded: make(map[string]bool),
			overrides:            make(map[overrideKey]map[string]bool),
		}

		if err := intoSet(name, "get.countries", ds.Get.Countries, nil); err != nil {
			return nil, err
		}
		pol.allowList = append(pol.allowList, ds.Get.Countries...)
		sort.Strings(pol.allowList)

		if err := intoSet(name, "get.skip_countries", ds.Get.SkipCountries, pol.excluded); err != nil {
			return nil, err
		}
		if err := intoSet(name, "process.skip_monotonic_check", ds.Process.SkipMonotonicCheck, pol.relaxed); err != nil {
			return nil, err
		}
		if err := intoSet(name, "process.skip_complete", ds.Process.SkipComplete, pol.completenessExcluded); err != nil {
			return nil, err
		}

		for country, overrides := range ds.Process.SkipAnomalyCheck {
			if !KnownCountry(country) {
				return nil, &model.ConfigError{
					Dataset: name,
					Field:   "process.skip_anomaly_check",
					Message: fmt.Sprintf("unrecognized country %q", country),
				}
			}
			for _, ov := range overrides {
				if _, err := time.Parse(model.DateLayout, ov.Date); err != nil {
					return nil, &model.ConfigError{
						Dataset: name,
						Field:   "process.skip_anomaly_check",
						Message: fmt.Sprintf("malformed date %q for %s", ov.Date, country),
					}
				}
				if len(ov.Metrics) == 0 {
					return nil, &model.ConfigError{
						Dataset: name,
						Field:   "process.skip_anomaly_check",
						Message: fmt.Sprintf("override for %s on %s lists no metrics", country, ov.Date),
					}
				}
				key := overrideKey{country: country, date: ov.Date}
				set := pol.overrides[key]
				if set == nil {
					set = make(map[string]bool)
					pol.overrides[key] = set
				}
				for _, metric := range ov.Metrics {
					set[metric] = true
				}
			}
		}

		store.datasets[name] = pol
	}

	return store, nil
}

func intoSet(dataset, field string, names []string, set map[string]bool) error {
	for _, name := range names {
		if !KnownCountry(name) {
			return &model.ConfigError{
				Dataset: dataset,
				Field:   field,
				Message: fmt.Sprintf("unrecognized country %q", name),
			}
		}
		if set != nil {
			set[name] = true
		}
	}
	return nil
}

// Datasets returns the configured dataset names in sorted order.
func (s *Store) Datasets() []string {
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowList returns the optional fetch allow-list for a dataset, or nil
// when every available country should be fetched.
func (s *Store) AllowList(dataset string) []string {
	if pol, ok := s.datasets[dataset]; ok && len(pol.allowList) > 0 {
		return pol.allowList
	}
	return nil
}

// IsCountryExcluded reports whether a country is excluded from the
// dataset entirely, either by skip_countries or by falling outside a
// configured allow-list.
func (s *Store) IsCountryExcluded(dataset, country string) bool {
	pol, ok := s.datasets[dataset]
	if !ok {
		return false
	}
	if pol.excluded[country] {
		return true
	}
	if len(pol.allowList) > 0 {
		for _, name := range pol.allowList {
			if name == country {
				return false
			}
		}
		return true
	}
	return false
}

// IsMonotonicityRelaxed reports whether the monotonicity rule is
// disabled country-wide for this dataset.
func (s *Store) IsMonotonicityRelaxed(dataset, country string) bool {
	pol, ok := s.datasets[dataset]
	return ok && pol.relaxed[country]
}

// IsCompletenessExcluded reports whether the country is omitted from
// completeness-derived metrics only.
func (s *Store) IsCompletenessExcluded(dataset, country string) bool {
	pol, ok := s.datasets[dataset]
	return ok && pol.completenessExcluded[country]
}

// OverridesFor returns the set of metrics exempted for exactly this
// (country, date), or an empty set if none. Overrides never apply to a
// range of dates: matching is exact so each override's blast radius is
// bounded to the single anomaly it documents.
func (s *Store) OverridesFor(dataset, country, date string) map[string]bool {
	pol, ok := s.datasets[dataset]
	if !ok {
		return nil
	}
	return pol.overrides[overrideKey{country: country, date: date}]
}

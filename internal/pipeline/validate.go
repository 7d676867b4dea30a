package pipeline

import (
	"health-data-pipeline/internal/model"
)

// CheckRecord walks one country's observations in date order and checks
// every cumulative metric against the last accepted value for that
// metric. Decreases are candidate violations resolved through the
// override resolver before any verdict is finalized.
//
// When relaxed is true the monotonicity rule is disabled country-wide:
// a decrease is accepted regardless of magnitude, because the
// relaxation is a pre-declared acknowledgment that this source is
// non-monotonic by nature.
//
// The comparison baseline is always the most recent Accepted or
// Exempted value. A Rejected value never becomes the baseline, so a
// single anomaly cannot cascade into false violations on the dates
// that follow it.
//
// The returned slice contains only the Exempted and Rejected verdicts;
// accepted points are the common case and are not materialized.
func CheckRecord(def model.DatasetDef, record *model.CountryRecord, relaxed bool, resolver *OverrideResolver) []model.Verdict {
	baseline := make(map[string]float64, len(def.Cumulative))
	seen := make(map[string]bool, len(def.Cumulative))

	var verdicts []model.Verdict
	for _, obs := range record.Observations {
		for _, metric := range def.Cumulative {
			value, ok := obs.Metrics[metric]
			if !ok {
				continue
			}

			candidate := seen[metric] && value < baseline[metric]
			if candidate && relaxed {
				baseline[metric] = value
				continue
			}

			verdict := resolver.Resolve(def.Name, record.Country, obs.Date, metric, candidate)
			switch verdict.Status {
			case model.VerdictAccepted, model.VerdictExempted:
				baseline[metric] = value
				seen[metric] = true
				if verdict.Status == model.VerdictExempted {
					verdicts = append(verdicts, verdict)
				}
			case model.VerdictRejected:
				verdicts = append(verdicts, verdict)
			}
		}
	}
	return verdicts
}

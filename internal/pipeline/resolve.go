package pipeline

import (
	"fmt"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
)

// OverrideResolver decides whether a flagged point is covered by a
// pre-declared anomaly override. Matching is exact on (country, date):
// an override never applies to a range of dates, only the single
// declared date, so its blast radius is bounded to exactly the anomaly
// it documents.
type OverrideResolver struct {
	store *policy.Store
}

// NewOverrideResolver creates a resolver backed by the loaded policy.
func NewOverrideResolver(store *policy.Store) *OverrideResolver {
	return &OverrideResolver{store: store}
}

// Resolve turns a candidate violation into a final verdict. Points that
// are not candidate violations are accepted as-is.
func (r *OverrideResolver) Resolve(dataset, country, date, metric string, candidate bool) model.Verdict {
	verdict := model.Verdict{
		Country: country,
		Date:    date,
		Metric:  metric,
	}

	if !candidate {
		verdict.Status = model.VerdictAccepted
		return verdict
	}

	if r.store.OverridesFor(dataset, country, date)[metric] {
		verdict.Status = model.VerdictExempted
		verdict.Reason = fmt.Sprintf("declared anomaly override for %s on %s", country, date)
		return verdict
	}

	verdict.Status = model.VerdictRejected
	verdict.Violation = model.ViolationMonotonicDecrease
	return verdict
}

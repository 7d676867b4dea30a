package model

import (
	"sort"
	"sync"
	"time"
)

// Country outcome classifications reported at the end of a run.
const (
	CountrySucceeded = "succeeded" // all points accepted or exempted
	CountryPartial   = "partial"   // some points rejected, rest of record kept
	CountryFailed    = "failed"    // fetch failed, absent from all downstream stages
)

// RunReport records the outcome of one dataset run: which countries
// succeeded, which failed at fetch, and which (country, date, metric)
// triples were rejected or exempted.
//
// Multiple country tasks write concurrently, so all mutation goes
// through the locked methods.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Dataset    string            `json:"dataset"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
	Fetched    []string          `json:"fetched"`
	FetchFails map[string]string `json:"fetch_failures"` // country -> error message
	Exempted   []Verdict         `json:"exempted"`
	Rejected   []Verdict         `json:"rejected"`
	Mutex      sync.RWMutex      `json:"-"`
}

// NewRunReport creates an empty report for one dataset run.
func NewRunReport(runID, dataset string) *RunReport {
	return &RunReport{
		RunID:      runID,
		Dataset:    dataset,
		StartedAt:  time.Now().UTC(),
		FetchFails: make(map[string]string),
	}
}

// AddFetched records a country whose record was fetched successfully.
func (r *RunReport) AddFetched(country string) {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	r.Fetched = append(r.Fetched, country)
}

// AddFetchFailure records a country whose fetch failed.
func (r *RunReport) AddFetchFailure(country string, err error) {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	r.FetchFails[country] = err.Error()
}

// AddVerdicts records the non-accepted verdicts from one country's
// validation pass. Accepted verdicts are not stored; they are the
// overwhelming majority and carry no diagnostic value.
func (r *RunReport) AddVerdicts(verdicts []Verdict) {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	for _, v := range verdicts {
		switch v.Status {
		case VerdictExempted:
			r.Exempted = append(r.Exempted, v)
		case VerdictRejected:
			r.Rejected = append(r.Rejected, v)
		}
	}
}

// Finalize stamps the end time and sorts the report's slices so the
// report itself is deterministic regardless of task completion order.
func (r *RunReport) Finalize() {
	r.Mutex.Lock()
	defer r.Mutex.Unlock()
	r.FinishedAt = time.Now().UTC()
	sort.Strings(r.Fetched)
	sortVerdicts(r.Exempted)
	sortVerdicts(r.Rejected)
}

// CountryOutcome classifies one country's result for this run.
func (r *RunReport) CountryOutcome(country string) string {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	if _, ok := r.FetchFails[country]; ok {
		return CountryFailed
	}
	for _, v := range r.Rejected {
		if v.Country == country {
			return CountryPartial
		}
	}
	return CountrySucceeded
}

// RejectedFor returns the rejected verdicts for one country.
func (r *RunReport) RejectedFor(country string) []Verdict {
	r.Mutex.RLock()
	defer r.Mutex.RUnlock()
	var out []Verdict
	for _, v := range r.Rejected {
		if v.Country == country {
			out = append(out, v)
		}
	}
	return out
}

func sortVerdicts(vs []Verdict) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Country != vs[j].Country {
			return vs[i].Country < vs[j].Country
		}
		if vs[i].Date != vs[j].Date {
			return vs[i].Date < vs[j].Date
		}
		return vs[i].Metric < vs[j].Metric
	})
}

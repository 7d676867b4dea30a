package model

// VerdictStatus is the outcome of validating one (country, date, metric) point.
type VerdictStatus string

const (
	// VerdictAccepted means the value passed all checks (or relaxation applied).
	VerdictAccepted VerdictStatus = "accepted"

	// VerdictExempted means the value violated a rule but a pre-declared
	// override for exactly this (country, date, metric) suppressed the rejection.
	VerdictExempted VerdictStatus = "exempted"

	// VerdictRejected means the value violated a rule with no matching
	// override; the point is dropped from output for this metric only.
	VerdictRejected VerdictStatus = "rejected"
)

// ViolationKind categorizes why a point was flagged.
type ViolationKind string

const (
	// ViolationMonotonicDecrease indicates a cumulative metric reported a
	// value below the last accepted value for the same country.
	ViolationMonotonicDecrease ViolationKind = "MONOTONIC_DECREASE"
)

// Verdict is the validation result for a specific (country, date, metric).
type Verdict struct {
	Country   string        `json:"country"`
	Date      string        `json:"date"`
	Metric    string        `json:"metric"`
	Status    VerdictStatus `json:"status"`
	Violation ViolationKind `json:"violation,omitempty"` // set when rejected
	Reason    string        `json:"reason,omitempty"`    // set when exempted
}

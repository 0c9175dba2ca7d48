package domain

import "time"

// DownloadOutcome is the terminal result for one attempted case.
// Every attempted case yields exactly one outcome, regardless of how
// many attempts it took.
type DownloadOutcome struct {
	// CaseNumber identifies the case.
	CaseNumber string

	// Succeeded is true when an artifact was written.
	Succeeded bool

	// Path is the written file, set on success.
	Path string

	// Size is the artifact size in bytes, set on success.
	Size int64

	// Attempts is how many attempts were made.
	Attempts int

	// Duration is the wall time spent on this case.
	Duration time.Duration

	// Reason is the last error, set on failure.
	Reason string
}

// BatchReport aggregates the outcomes of one download batch.
type BatchReport struct {
	// Outcomes holds one entry per attempted case. In parallel mode
	// the order follows completion, not input.
	Outcomes []DownloadOutcome

	// Succeeded counts successful cases.
	Succeeded int

	// Failed counts exhausted cases.
	Failed int

	// Elapsed is the total batch wall time.
	Elapsed time.Duration
}

// Add appends an outcome and updates the aggregate counts.
// Not safe for concurrent use; callers serialise access.
func (r *BatchReport) Add(outcome DownloadOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	if outcome.Succeeded {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// RunResult is what the pipeline facade returns: the best-effort case
// set paired with every non-fatal condition met along the way.
type RunResult struct {
	// Unit is the active unit the data was read under.
	Unit string

	// Cases is the merged, filtered, ordered case set.
	Cases []Case

	// AllCases is the merged set before filtering.
	AllCases []Case

	// Warnings lists every non-fatal condition recorded.
	Warnings []Warning

	// Report is the download batch report, when downloads ran.
	Report *BatchReport

	// Elapsed is the total pipeline wall time.
	Elapsed time.Duration
}

// RunRecord is the persisted form of one pipeline run.
type RunRecord struct {
	// ID is a unique run identifier.
	ID string

	// CreatedAt is when the run finished.
	CreatedAt time.Time

	// Unit is the active unit the run executed under.
	Unit string

	// Cases is the filtered case set, documents included.
	Cases []Case

	// Report is the download report, when downloads ran.
	Report *BatchReport
}

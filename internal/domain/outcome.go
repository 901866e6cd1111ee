package domain

import "time"

// BugStatus is the terminal state of one (project, bug) unit
type BugStatus string

const (
	BugStatusProcessed        BugStatus = "processed"
	BugStatusAlreadyProcessed BugStatus = "already_processed"
	BugStatusDeprecated       BugStatus = "deprecated"
	BugStatusFailed           BugStatus = "failed"
)

// BugOutcome is what the pipeline reports for a single bug
type BugOutcome struct {
	Dataset Dataset
	Project Project
	Bug     BugID
	Status  BugStatus
	Files   []string // flattened names written to the output directories
	Err     error
}

// BugRecord is a ledger row
type BugRecord struct {
	ID        string    `json:"id"`
	Dataset   Dataset   `json:"dataset"`
	Project   Project   `json:"project"`
	Bug       BugID     `json:"bug"`
	Status    BugStatus `json:"status"`
	Files     []string  `json:"files"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToRecord converts an outcome to a ledger row
func (o *BugOutcome) ToRecord(id string, now time.Time) *BugRecord {
	rec := &BugRecord{
		ID:        id,
		Dataset:   o.Dataset,
		Project:   o.Project,
		Bug:       o.Bug,
		Status:    o.Status,
		Files:     o.Files,
		CreatedAt: now,
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// RunReport tallies the outcomes of one pipeline run
type RunReport struct {
	Dataset          Dataset
	Processed        int
	AlreadyProcessed int
	Deprecated       int
	Failed           int
	Files            int
	FailedProjects   []Project
	Outcomes         []BugOutcome
}

// Add folds an outcome into the report
func (r *RunReport) Add(o BugOutcome) {
	switch o.Status {
	case BugStatusProcessed:
		r.Processed++
	case BugStatusAlreadyProcessed:
		r.AlreadyProcessed++
	case BugStatusDeprecated:
		r.Deprecated++
	case BugStatusFailed:
		r.Failed++
	}
	r.Files += len(o.Files)
	r.Outcomes = append(r.Outcomes, o)
}

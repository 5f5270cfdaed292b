package model

import "time"

// RunReport is the record of one bot run
type RunReport struct {
	RunID       string        `json:"run_id"`
	Site        string        `json:"site"`
	Property    PropertyID    `json:"property"`
	DryRun      bool          `json:"dry_run"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Pages       []PageOutcome `json:"pages"`
	Totals      Totals        `json:"totals"`
	Interrupted bool          `json:"interrupted,omitempty"` // stopped before the feed ended
	Error       string        `json:"error,omitempty"`       // why the run stopped early
}

// PageStatus is the final state of one page
type PageStatus string

const (
	StatusUnchanged PageStatus = "unchanged" // nothing to do
	StatusEdited    PageStatus = "edited"    // at least one edit applied
	StatusDeclined  PageStatus = "declined"  // a proposed edit was refused
	StatusEscalated PageStatus = "escalated" // handed to a human for review
	StatusSkipped   PageStatus = "skipped"   // no item, no ancestor, unresolved
	StatusFailed    PageStatus = "failed"    // an edit failed
)

// PageOutcome records what happened to one page
type PageOutcome struct {
	Title      string          `json:"title"`
	Item       ItemID          `json:"item,omitempty"`
	Status     PageStatus      `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Resolution *Resolution     `json:"resolution,omitempty"`
	Decision   *Decision       `json:"decision,omitempty"`
	Answer     string          `json:"answer,omitempty"` // confirmation answer, if asked
	Applied    bool            `json:"applied"`          // decision written to the store
	Qualifiers []QualifierEdit `json:"qualifiers,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Warn appends a warning
func (o *PageOutcome) Warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

// Totals counts page outcomes by status
type Totals struct {
	Pages      int `json:"pages"`
	Unchanged  int `json:"unchanged"`
	Edited     int `json:"edited"`
	Declined   int `json:"declined"`
	Escalated  int `json:"escalated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Qualifiers int `json:"qualifiers"`
}

// Add counts one page outcome
func (t *Totals) Add(o PageOutcome) {
	t.Pages++
	t.Qualifiers += len(o.Qualifiers)
	switch o.Status {
	case StatusUnchanged:
		t.Unchanged++
	case StatusEdited:
		t.Edited++
	case StatusDeclined:
		t.Declined++
	case StatusEscalated:
		t.Escalated++
	case StatusSkipped:
		t.Skipped++
	case StatusFailed:
		t.Failed++
	}
}

// Record appends an outcome and updates the totals
func (r *RunReport) Record(o PageOutcome) {
	r.Pages = append(r.Pages, o)
	r.Totals.Add(o)
}

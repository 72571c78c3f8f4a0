package models

import (
	"fmt"
	"time"
)

// Run records one playlist download job and its per-track outcomes.
type Run struct {
	id          string
	sequence    int
	playlistID  string
	targetDir   string
	total       int
	succeeded   int
	failed      int
	skipped     int
	cancelled   bool
	startedAt   time.Time
	completedAt *time.Time
	outcomes    []Outcome
}

var _ Model = (*Run)(nil)

// NewRun creates a run for playlistID writing into targetDir.
func NewRun(playlistID, targetDir string, total int) *Run {
	return &Run{
		playlistID: playlistID,
		targetDir:  targetDir,
		total:      total,
		startedAt:  time.Now(),
	}
}

func (r *Run) ID() string               { return r.id }
func (r *Run) Sequence() int            { return r.sequence }
func (r *Run) PlaylistID() string       { return r.playlistID }
func (r *Run) TargetDir() string        { return r.targetDir }
func (r *Run) Total() int               { return r.total }
func (r *Run) Succeeded() int           { return r.succeeded }
func (r *Run) Failed() int              { return r.failed }
func (r *Run) Skipped() int             { return r.skipped }
func (r *Run) Cancelled() bool          { return r.cancelled }
func (r *Run) StartedAt() time.Time     { return r.startedAt }
func (r *Run) CompletedAt() *time.Time  { return r.completedAt }
func (r *Run) Outcomes() []Outcome      { return r.outcomes }
func (r *Run) CreatedAt() time.Time     { return r.startedAt }
func (r *Run) SetID(id string)          { r.id = id }
func (r *Run) SetSequence(seq int)      { r.sequence = seq }
func (r *Run) SetStartedAt(t time.Time) { r.startedAt = t }

// UpdatedAt returns the completion time, or the start time for unfinished runs.
func (r *Run) UpdatedAt() time.Time {
	if r.completedAt != nil {
		return *r.completedAt
	}
	return r.startedAt
}

// Complete stores the outcomes, recomputes the counters and stamps the completion time.
func (r *Run) Complete(outcomes []Outcome, cancelled bool, at time.Time) {
	r.outcomes = outcomes
	r.cancelled = cancelled
	r.completedAt = &at
	r.succeeded, r.failed, r.skipped = 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.OK() && o.Skipped:
			r.succeeded++
			r.skipped++
		case o.OK():
			r.succeeded++
		default:
			r.failed++
		}
	}
}

// Restore sets the persisted counters without outcomes (used when scanning rows).
func (r *Run) Restore(succeeded, failed, skipped int, cancelled bool, completedAt *time.Time) {
	r.succeeded, r.failed, r.skipped = succeeded, failed, skipped
	r.cancelled = cancelled
	r.completedAt = completedAt
}

// SetOutcomes attaches outcomes loaded from storage.
func (r *Run) SetOutcomes(outcomes []Outcome) { r.outcomes = outcomes }

// Validate checks required fields.
func (r *Run) Validate() error {
	if r.playlistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if r.targetDir == "" {
		return fmt.Errorf("target directory is required")
	}
	if r.total < 0 {
		return fmt.Errorf("total must not be negative")
	}
	if r.succeeded+r.failed > r.total {
		return fmt.Errorf("outcome count %d exceeds total %d", r.succeeded+r.failed, r.total)
	}
	return nil
}

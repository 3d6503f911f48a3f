package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrReportMissingID     = errors.New("report is missing a task id")
	ErrReportUnknownKind   = errors.New("report has an unknown task kind")
	ErrReportUnknownStatus = errors.New("report has an unknown task status")
)

// Report is one progress update from the worker for a single task id.
// Optional fields that are absent leave the stored value unchanged; they do
// not clear it. StepIndeterminate is the one explicit "clear" signal: it
// drops the stored step progress back to indeterminate.
type Report struct {
	TaskID            uint64     `json:"task_id"`
	Kind              TaskKind   `json:"kind"`
	Status            TaskStatus `json:"status"`
	DisplayName       *string    `json:"display_name,omitempty"`
	TotalProgress     *float64   `json:"total_progress,omitempty"`
	CurrentStep       *int       `json:"current_step,omitempty"`
	TotalSteps        *int       `json:"total_steps,omitempty"`
	StepProgress      *float64   `json:"step_progress,omitempty"`
	StepIndeterminate bool       `json:"step_indeterminate,omitempty"`
	Message           string     `json:"message"`
}

// DecodeReport parses one raw report payload.
func DecodeReport(raw []byte) (Report, error) {
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}

// Validate rejects reports the registry cannot key or classify and clamps
// out-of-range progress values. A buggy worker must not poison the view.
func (r *Report) Validate() error {
	if r.TaskID == 0 {
		return ErrReportMissingID
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrReportUnknownKind, r.Kind)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrReportUnknownStatus, r.Status)
	}

	if r.TotalProgress != nil {
		clamped := clampFraction(*r.TotalProgress)
		r.TotalProgress = &clamped
	}
	if r.StepProgress != nil {
		clamped := clampFraction(*r.StepProgress)
		r.StepProgress = &clamped
	}
	if r.CurrentStep != nil && *r.CurrentStep < 0 {
		zero := 0
		r.CurrentStep = &zero
	}
	if r.TotalSteps != nil && *r.TotalSteps < 0 {
		zero := 0
		r.TotalSteps = &zero
	}
	return nil
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ApplyResult describes what applying a single report changed.
type ApplyResult struct {
	Created            bool
	Mutated            bool
	TerminalTransition bool
}

package services

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskhub/backend/internal/domain"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

// DefaultMaxFinished bounds how many terminal records the registry retains.
const DefaultMaxFinished = 50

// TaskRegistry is the single source of truth for all known tasks. All
// writes go through Apply, which is only ever called from the report
// ingestor goroutine; any number of readers may query concurrently.
type TaskRegistry struct {
	mu          sync.RWMutex
	tasks       map[uint64]*domain.TaskRecord
	terminal    int
	maxFinished int
	version     atomic.Uint64
	logger      *logger.Logger
	now         func() time.Time
}

type TaskRegistryConfig struct {
	MaxFinished int
	Logger      *logger.Logger
}

func NewTaskRegistry(cfg TaskRegistryConfig) *TaskRegistry {
	maxFinished := cfg.MaxFinished
	if maxFinished <= 0 {
		maxFinished = DefaultMaxFinished
	}
	return &TaskRegistry{
		tasks:       make(map[uint64]*domain.TaskRecord),
		maxFinished: maxFinished,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Apply upserts one report into the registry. Unknown ids create a record,
// terminal records are frozen (late and duplicate reports change nothing),
// and non-terminal records get present fields overlaid. A fresh record
// value replaces the map entry on every mutation so readers holding a copy
// never observe a record mid-change.
func (r *TaskRegistry) Apply(report domain.Report) domain.ApplyResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res domain.ApplyResult

	prev, exists := r.tasks[report.TaskID]
	switch {
	case !exists:
		rec := newRecord(report, r.now())
		r.tasks[report.TaskID] = rec
		res.Created = true
		res.Mutated = true
		if rec.Status.Terminal() {
			r.terminal++
			res.TerminalTransition = true
		}

	case prev.Status.Terminal():
		// Frozen on terminal: the report is accepted but ignored.
		return res

	default:
		next := merge(*prev, report)
		if next.Status.Terminal() {
			end := r.now()
			next.EndTime = &end
			r.terminal++
			res.TerminalTransition = true
		}
		r.tasks[report.TaskID] = &next
		res.Mutated = true
	}

	r.version.Add(1)
	r.cleanupLocked()
	return res
}

// newRecord builds the initial record for an unseen id. StartTime comes
// from the local clock, never from the report; a first-and-last terminal
// report gets its EndTime stamped at creation too.
func newRecord(report domain.Report, now time.Time) *domain.TaskRecord {
	rec := &domain.TaskRecord{
		ID:        report.TaskID,
		Kind:      report.Kind,
		Status:    report.Status,
		Message:   report.Message,
		StartTime: now,
	}
	if report.DisplayName != nil {
		rec.DisplayName = *report.DisplayName
	}
	if report.TotalProgress != nil {
		rec.TotalProgress = *report.TotalProgress
	}
	if report.CurrentStep != nil {
		rec.CurrentStep = *report.CurrentStep
	}
	if report.TotalSteps != nil {
		rec.TotalSteps = *report.TotalSteps
	}
	if report.StepProgress != nil && !report.StepIndeterminate {
		sp := *report.StepProgress
		rec.StepProgress = &sp
	}
	if report.Status.Terminal() {
		end := now
		rec.EndTime = &end
	}
	return rec
}

// merge overlays the report's present fields onto a copy of prev. Kind is
// immutable after first observation, so a conflicting kind is kept as-is.
func merge(prev domain.TaskRecord, report domain.Report) domain.TaskRecord {
	next := prev
	next.Status = report.Status
	next.Message = report.Message
	if report.DisplayName != nil {
		next.DisplayName = *report.DisplayName
	}
	if report.TotalProgress != nil {
		next.TotalProgress = *report.TotalProgress
	}
	if report.CurrentStep != nil {
		next.CurrentStep = *report.CurrentStep
	}
	if report.TotalSteps != nil {
		next.TotalSteps = *report.TotalSteps
	}
	switch {
	case report.StepIndeterminate:
		next.StepProgress = nil
	case report.StepProgress != nil:
		sp := *report.StepProgress
		next.StepProgress = &sp
	case prev.StepProgress != nil:
		// fresh pointer so the stored record shares nothing with prev
		sp := *prev.StepProgress
		next.StepProgress = &sp
	}
	return next
}

// cleanupLocked evicts the oldest finished records once their count
// exceeds the retention bound. Active records are never evicted. The scan
// only happens when the bound is actually exceeded, so the common apply
// path stays O(1).
func (r *TaskRegistry) cleanupLocked() {
	if r.terminal <= r.maxFinished {
		return
	}

	finished := make([]*domain.TaskRecord, 0, r.terminal)
	for _, t := range r.tasks {
		if t.Status.Terminal() {
			finished = append(finished, t)
		}
	}

	// Oldest first; equal end times fall back to id so eviction order is
	// deterministic within a run.
	sort.Slice(finished, func(i, j int) bool {
		if finished[i].EndTime.Equal(*finished[j].EndTime) {
			return finished[i].ID < finished[j].ID
		}
		return finished[i].EndTime.Before(*finished[j].EndTime)
	})

	for _, t := range finished[:len(finished)-r.maxFinished] {
		delete(r.tasks, t.ID)
		r.logger.Debugw("task_evicted", "task_id", t.ID, "kind", t.Kind, "status", t.Status)
	}
	r.terminal = r.maxFinished
}

// Task returns a copy of the record for id.
func (r *TaskRegistry) Task(id uint64) (*domain.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[id]
	if !exists {
		return nil, ErrTaskNotFound
	}

	taskCopy := *task
	return &taskCopy, nil
}

// ActiveTasks returns copies of all non-terminal records, in no particular
// order; the presentation layer sorts as it sees fit.
func (r *TaskRegistry) ActiveTasks() []domain.TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]domain.TaskRecord, 0, len(r.tasks)-r.terminal)
	for _, t := range r.tasks {
		if !t.Status.Terminal() {
			active = append(active, *t)
		}
	}
	return active
}

// RecentTasks returns copies of all terminal records, most recently
// finished first.
func (r *TaskRegistry) RecentTasks() []domain.TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recent := make([]domain.TaskRecord, 0, r.terminal)
	for _, t := range r.tasks {
		if t.Status.Terminal() {
			recent = append(recent, *t)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		if recent[i].EndTime.Equal(*recent[j].EndTime) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].EndTime.After(*recent[j].EndTime)
	})
	return recent
}

// Version is a monotonic change counter bumped on every mutation, so
// pollers can detect change without diffing task lists.
func (r *TaskRegistry) Version() uint64 {
	return r.version.Load()
}

package services

import (
	"github.com/taskhub/backend/internal/core/ports"
	"github.com/taskhub/backend/internal/domain"
)

// TaskSummary is the cheap polling surface for presentation clients. The
// version field mirrors the registry change counter, so a client can skip
// refetching the task lists when nothing moved.
type TaskSummary struct {
	Version      uint64                    `json:"version"`
	Active       int                       `json:"active"`
	Recent       int                       `json:"recent"`
	RecentFailed int                       `json:"recent_failed"`
	Cancelling   int                       `json:"cancelling"`
	ByStatus     map[domain.TaskStatus]int `json:"by_status"`
}

// TaskViews recomputes read-only projections over the registry on demand.
// It never mutates the registry and is safe for any number of concurrent
// readers.
type TaskViews struct {
	tracker ports.TaskTracker
	cancels ports.CancelService
}

func NewTaskViews(tracker ports.TaskTracker, cancels ports.CancelService) *TaskViews {
	return &TaskViews{tracker: tracker, cancels: cancels}
}

func (v *TaskViews) Active() []domain.TaskRecord {
	return v.tracker.ActiveTasks()
}

func (v *TaskViews) Recent() []domain.TaskRecord {
	return v.tracker.RecentTasks()
}

func (v *TaskViews) Task(id uint64) (*domain.TaskRecord, error) {
	return v.tracker.Task(id)
}

func (v *TaskViews) Summary() TaskSummary {
	active := v.tracker.ActiveTasks()
	recent := v.tracker.RecentTasks()

	byStatus := make(map[domain.TaskStatus]int, 5)
	failed := 0
	for _, t := range active {
		byStatus[t.Status]++
	}
	for _, t := range recent {
		byStatus[t.Status]++
		if t.Status == domain.StatusFailed {
			failed++
		}
	}

	return TaskSummary{
		Version:      v.tracker.Version(),
		Active:       len(active),
		Recent:       len(recent),
		RecentFailed: failed,
		Cancelling:   v.cancels.PendingCount(),
		ByStatus:     byStatus,
	}
}

package ports

import (
	"context"

	"github.com/taskhub/backend/internal/domain"
)

type TaskTracker interface {
	Apply(report domain.Report) domain.ApplyResult
	Task(id uint64) (*domain.TaskRecord, error)
	ActiveTasks() []domain.TaskRecord
	RecentTasks() []domain.TaskRecord
	Version() uint64
}

type CancelService interface {
	Request(ctx context.Context, taskID uint64) error
	Resolve(taskID uint64)
	IsCancelling(taskID uint64) bool
	PendingCount() int
}

// WorkerCommander sends commands to the external worker subsystem.
// Delivery is fire-and-forget; the worker acknowledges nothing.
type WorkerCommander interface {
	Cancel(ctx context.Context, taskID uint64) error
}

// ReportIngestor accepts raw report payloads from any transport and feeds
// them to the single writer goroutine in arrival order.
type ReportIngestor interface {
	Enqueue(raw []byte)
}

package services

import (
	"context"

	"github.com/taskhub/backend/internal/core/ports"
	"github.com/taskhub/backend/internal/domain"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

// DefaultIngestQueueSize is the ingest queue capacity when none is configured.
const DefaultIngestQueueSize = 256

// ReportIngestor adapts the worker's report stream into registry writes.
// It is the only writer: transport handlers enqueue raw payloads and the
// Run goroutine drains them in arrival order, never reordering, coalescing,
// or dropping. A payload that fails to decode is discarded and the stream
// continues.
type ReportIngestor struct {
	registry *TaskRegistry
	cancels  ports.CancelService
	logger   *logger.Logger
	queue    chan []byte
}

type ReportIngestorConfig struct {
	Registry  *TaskRegistry
	Cancels   ports.CancelService
	Logger    *logger.Logger
	QueueSize int
}

func NewReportIngestor(cfg ReportIngestorConfig) *ReportIngestor {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultIngestQueueSize
	}
	return &ReportIngestor{
		registry: cfg.Registry,
		cancels:  cfg.Cancels,
		logger:   cfg.Logger,
		queue:    make(chan []byte, size),
	}
}

// Enqueue hands one raw payload to the ingest queue. It blocks when the
// queue is full rather than drop a report. The caller must pass a slice it
// no longer writes to.
func (i *ReportIngestor) Enqueue(raw []byte) {
	i.queue <- raw
}

// Run drains the queue until ctx is cancelled.
func (i *ReportIngestor) Run(ctx context.Context) {
	i.logger.Infow("report_ingestor_started", "queue_capacity", cap(i.queue))
	for {
		select {
		case <-ctx.Done():
			i.logger.Infow("report_ingestor_stopped")
			return
		case raw := <-i.queue:
			i.ingest(raw)
		}
	}
}

func (i *ReportIngestor) ingest(raw []byte) {
	report, err := domain.DecodeReport(raw)
	if err != nil {
		i.logger.Warnw("report_decode_failed", "error", err, "payload_bytes", len(raw))
		return
	}
	i.Submit(report)
}

// Submit applies one decoded report. It must only run on the Run goroutine
// (or a single-threaded test); concurrent callers would break the
// single-writer discipline.
func (i *ReportIngestor) Submit(report domain.Report) {
	if err := report.Validate(); err != nil {
		i.logger.Warnw("report_invalid", "task_id", report.TaskID, "error", err)
		return
	}

	res := i.registry.Apply(report)

	if res.Created {
		i.logger.Infow("task_created",
			"task_id", report.TaskID,
			"kind", report.Kind,
			"status", report.Status,
		)
	}
	if res.TerminalTransition {
		i.logger.Infow("task_finished", "task_id", report.TaskID, "status", report.Status)
		if i.cancels != nil {
			i.cancels.Resolve(report.TaskID)
		}
	}
}

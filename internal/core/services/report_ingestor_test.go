package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhub/backend/internal/domain"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

func newTestIngestor(t *testing.T) (*ReportIngestor, *TaskRegistry) {
	t.Helper()
	registry, _ := newTestRegistry(t, 0)
	ingestor := NewReportIngestor(ReportIngestorConfig{
		Registry: registry,
		Logger:   logger.NewNop(),
	})
	return ingestor, registry
}

func encodeReport(t *testing.T, report domain.Report) []byte {
	t.Helper()
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	return raw
}

func TestIngestor_AppliesReportsInOrder(t *testing.T) {
	ingestor, registry := newTestIngestor(t)

	ingestor.Submit(runningReport(1, 0.2, "first"))
	ingestor.Submit(runningReport(1, 0.9, "second"))
	ingestor.Submit(runningReport(1, 0.5, "third"))

	task, err := registry.Task(1)
	require.NoError(t, err)
	require.Equal(t, 0.5, task.TotalProgress)
	require.Equal(t, "third", task.Message)
}

func TestIngestor_MalformedPayloadDoesNotStopStream(t *testing.T) {
	ingestor, registry := newTestIngestor(t)

	ingestor.ingest([]byte("{not json"))
	ingestor.ingest(encodeReport(t, runningReport(1, 0.5, "fine")))
	ingestor.ingest([]byte(""))
	ingestor.ingest(encodeReport(t, terminalReport(1, domain.StatusCompleted)))

	task, err := registry.Task(1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, task.Status)
}

func TestIngestor_InvalidReportDiscarded(t *testing.T) {
	ingestor, registry := newTestIngestor(t)

	noID := runningReport(0, 0.5, "no id")
	ingestor.Submit(noID)

	badStatus := runningReport(2, 0.5, "bad status")
	badStatus.Status = "exploded"
	ingestor.Submit(badStatus)

	badKind := runningReport(3, 0.5, "bad kind")
	badKind.Kind = "MINE_BITCOIN"
	ingestor.Submit(badKind)

	require.Empty(t, registry.ActiveTasks())
	require.Empty(t, registry.RecentTasks())
}

func TestIngestor_ClampsOutOfRangeProgress(t *testing.T) {
	ingestor, registry := newTestIngestor(t)

	report := runningReport(1, 1.7, "overshoot")
	report.StepProgress = f64(-0.3)
	ingestor.Submit(report)

	task, err := registry.Task(1)
	require.NoError(t, err)
	require.Equal(t, 1.0, task.TotalProgress)
	require.NotNil(t, task.StepProgress)
	require.Equal(t, 0.0, *task.StepProgress)
}

func TestIngestor_RunDrainsQueueInOrder(t *testing.T) {
	ingestor, registry := newTestIngestor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)

	for i, progress := range []float64{0.1, 0.6, 0.4} {
		report := runningReport(1, progress, "update")
		report.CurrentStep = intp(i)
		ingestor.Enqueue(encodeReport(t, report))
	}
	ingestor.Enqueue(encodeReport(t, terminalReport(1, domain.StatusCompleted)))

	require.Eventually(t, func() bool {
		task, err := registry.Task(1)
		return err == nil && task.Status == domain.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	task, err := registry.Task(1)
	require.NoError(t, err)
	// The last non-terminal report won the progress field before the
	// terminal one froze the record.
	require.Equal(t, 0.4, task.TotalProgress)
	require.Equal(t, 2, task.CurrentStep)
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/taskhub/backend/internal/core/ports"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

// CancelCoordinator tracks task ids for which a cancel command has been
// sent but no terminal report has resolved it yet. The pending flag is what
// lets the presentation layer show a "cancelling" state and swallow
// repeated cancel clicks.
//
// There is no timeout on a pending entry: if the worker never sends a
// terminal report for the id, the flag stays set. That liveness gap belongs
// to the worker contract and is deliberately not papered over here.
type CancelCoordinator struct {
	mu        sync.RWMutex
	pending   map[uint64]time.Time
	tracker   ports.TaskTracker
	commander ports.WorkerCommander
	logger    *logger.Logger
}

type CancelCoordinatorConfig struct {
	Tracker   ports.TaskTracker
	Commander ports.WorkerCommander
	Logger    *logger.Logger
}

func NewCancelCoordinator(cfg CancelCoordinatorConfig) *CancelCoordinator {
	return &CancelCoordinator{
		pending:   make(map[uint64]time.Time),
		tracker:   cfg.Tracker,
		commander: cfg.Commander,
		logger:    cfg.Logger,
	}
}

// Request marks taskID pending and sends a cancel command to the worker.
// Unknown ids get ErrTaskNotFound and already-finished tasks
// ErrTaskFinished; a task that is already pending is a no-op. The command
// itself is advisory: a send failure is logged but the pending flag stays,
// since the command may have reached the worker anyway.
func (c *CancelCoordinator) Request(ctx context.Context, taskID uint64) error {
	task, err := c.tracker.Task(taskID)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return ErrTaskFinished
	}

	c.mu.Lock()
	if _, already := c.pending[taskID]; already {
		c.mu.Unlock()
		return nil
	}
	c.pending[taskID] = time.Now()
	c.mu.Unlock()

	// The task may have turned terminal between the status check and the
	// insert, in which case the ingestor's Resolve already ran and the
	// entry above would never be cleared. Terminal status is monotone, so
	// a re-check after the insert closes that window.
	if current, err := c.tracker.Task(taskID); err != nil || current.Status.Terminal() {
		c.Resolve(taskID)
		return ErrTaskFinished
	}

	c.logger.Infow("cancel_requested", "task_id", taskID, "kind", task.Kind)

	if err := c.commander.Cancel(ctx, taskID); err != nil {
		c.logger.Warnw("cancel_command_failed", "task_id", taskID, "error", err)
	}
	return nil
}

// Resolve clears the pending flag for taskID. The ingestor calls this on
// every terminal transition, whichever terminal status was reached: the
// worker may well complete or fail a task despite a racing cancel.
func (c *CancelCoordinator) Resolve(taskID uint64) {
	c.mu.Lock()
	requestedAt, wasPending := c.pending[taskID]
	delete(c.pending, taskID)
	c.mu.Unlock()

	if wasPending {
		c.logger.Infow("cancel_resolved",
			"task_id", taskID,
			"pending_ms", time.Since(requestedAt).Milliseconds(),
		)
	}
}

func (c *CancelCoordinator) IsCancelling(taskID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, pending := c.pending[taskID]
	return pending
}

func (c *CancelCoordinator) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.pending)
}

package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/taskhub/backend/internal/core/ports"
	"github.com/taskhub/backend/internal/core/services"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

type TaskHandler struct {
	views   *services.TaskViews
	cancels ports.CancelService
	logger  *logger.Logger
}

func NewTaskHandler(views *services.TaskViews, cancels ports.CancelService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{views: views, cancels: cancels, logger: logger}
}

func (h *TaskHandler) GetActiveTasks(c *fiber.Ctx) error {
	tasks := h.views.Active()
	return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
}

func (h *TaskHandler) GetRecentTasks(c *fiber.Ctx) error {
	tasks := h.views.Recent()
	return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
}

func (h *TaskHandler) GetSummary(c *fiber.Ctx) error {
	return c.JSON(h.views.Summary())
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		h.logger.Warnw("get_task_invalid_id", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	task, err := h.views.Task(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	return c.JSON(fiber.Map{
		"task":       task,
		"cancelling": h.cancels.IsCancelling(id),
	})
}

func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		h.logger.Warnw("cancel_task_invalid_id", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	err = h.cancels.Request(c.UserContext(), id)
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	case errors.Is(err, services.ErrTaskFinished):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task already finished"})
	case err != nil:
		h.logger.Errorw("cancel_task_failed", "task_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id":    id,
		"cancelling": true,
	})
}

func parseTaskID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

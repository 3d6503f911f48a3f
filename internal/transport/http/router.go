package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/taskhub/backend/internal/config"
	"github.com/taskhub/backend/internal/core/services"
	"github.com/taskhub/backend/internal/infrastructure/logger"
	"github.com/taskhub/backend/internal/infrastructure/worker"
	"github.com/taskhub/backend/internal/transport/http/handlers"
	httpmw "github.com/taskhub/backend/internal/transport/http/middleware"
)

type RouterConfig struct {
	Logger *logger.Logger
	Config *config.Config
}

// SetupRoutes wires the task core and mounts all routes. It returns the
// report ingestor so main can run its drain loop for the process lifetime.
func SetupRoutes(app *fiber.App, cfg RouterConfig) *services.ReportIngestor {
	registry := services.NewTaskRegistry(services.TaskRegistryConfig{
		MaxFinished: cfg.Config.Registry.MaxFinished,
		Logger:      cfg.Logger,
	})

	commander := worker.NewClient(worker.ClientConfig{
		BaseURL: cfg.Config.Worker.BaseURL,
		Token:   cfg.Config.Worker.Token,
		Timeout: cfg.Config.Worker.Timeout,
		Logger:  cfg.Logger,
	})

	cancels := services.NewCancelCoordinator(services.CancelCoordinatorConfig{
		Tracker:   registry,
		Commander: commander,
		Logger:    cfg.Logger,
	})

	ingestor := services.NewReportIngestor(services.ReportIngestorConfig{
		Registry:  registry,
		Cancels:   cancels,
		Logger:    cfg.Logger,
		QueueSize: cfg.Config.Registry.IngestQueueSize,
	})

	views := services.NewTaskViews(registry, cancels)

	taskHandler := handlers.NewTaskHandler(views, cancels, cfg.Logger)
	workerHandler := handlers.NewWorkerHandler(ingestor, cfg.Logger)

	// Worker report stream (websocket)
	app.Use("/ws", httpmw.WorkerAuth(cfg.Config), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/worker/reports", websocket.New(workerHandler.HandleStream))

	// API v1 routes
	api := app.Group("/api/v1")

	// Task routes (presentation layer)
	tasks := api.Group("/tasks", httpmw.AdminAuth(cfg.Config))
	tasks.Get("/active", taskHandler.GetActiveTasks)
	tasks.Get("/recent", taskHandler.GetRecentTasks)
	tasks.Get("/summary", taskHandler.GetSummary)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/:id/cancel", taskHandler.CancelTask)

	// Worker routes (HTTP fallback for the report stream)
	workerGroup := api.Group("/worker", httpmw.WorkerAuth(cfg.Config))
	workerGroup.Post("/reports", workerHandler.PostReports)

	return ingestor
}

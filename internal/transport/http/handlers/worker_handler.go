package handlers

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/taskhub/backend/internal/core/ports"
	"github.com/taskhub/backend/internal/infrastructure/logger"
)

var errEmptyBody = errors.New("empty request body")

// WorkerHandler is the inbound edge for the worker's report stream. Both
// paths (HTTP batch and websocket) only enqueue raw payloads; decoding and
// all registry writes happen on the ingestor goroutine so report order is
// the enqueue order.
type WorkerHandler struct {
	ingestor ports.ReportIngestor
	logger   *logger.Logger
}

func NewWorkerHandler(ingestor ports.ReportIngestor, logger *logger.Logger) *WorkerHandler {
	return &WorkerHandler{ingestor: ingestor, logger: logger}
}

// PostReports accepts a single report object or a JSON array of them.
// Array elements are enqueued in array order.
func (h *WorkerHandler) PostReports(c *fiber.Ctx) error {
	payloads, err := splitReportPayloads(c.Body())
	if err != nil {
		h.logger.Warnw("worker_reports_bad_body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	for _, payload := range payloads {
		h.ingestor.Enqueue(payload)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": len(payloads)})
}

// HandleStream consumes the worker's websocket report stream. Each text or
// binary message is one report payload.
func (h *WorkerHandler) HandleStream(c *websocket.Conn) {
	h.logger.Infow("worker_stream_connected", "remote", c.RemoteAddr().String())

	for {
		messageType, msg, err := c.ReadMessage()
		if err != nil {
			h.logger.Infow("worker_stream_closed", "error", err)
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		// ReadMessage reuses its buffer; the queue needs an owned copy.
		h.ingestor.Enqueue(append([]byte(nil), msg...))
	}
}

// splitReportPayloads copies each payload out of the request body, which
// fiber reuses between requests.
func splitReportPayloads(body []byte) ([][]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		payloads := make([][]byte, 0, len(items))
		for _, item := range items {
			payloads = append(payloads, append([]byte(nil), item...))
		}
		return payloads, nil
	}

	return [][]byte{append([]byte(nil), trimmed...)}, nil
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taskhub/backend/internal/infrastructure/logger"
)

// Client sends commands to the external worker subsystem over HTTP. The
// worker promises nothing back beyond an eventual terminal report, so every
// command here is fire-and-forget with a bounded timeout.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *logger.Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: cfg.Logger,
	}
}

type cancelCommand struct {
	TaskID uint64 `json:"task_id"`
}

// Cancel asks the worker to abort the task. A nil return means the command
// was delivered, not that the task will terminate.
func (c *Client) Cancel(ctx context.Context, taskID uint64) error {
	start := time.Now()

	body, err := json.Marshal(cancelCommand{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("failed to marshal cancel command: %w", err)
	}

	url := fmt.Sprintf("%s/commands/cancel", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warnw("cancel_command_network_error", "task_id", taskID, "error", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.Infow("cancel_command_sent",
		"task_id", taskID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("worker returned status %d", resp.StatusCode)
	}

	return nil
}
